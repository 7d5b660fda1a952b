package search

import (
	"time"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/fault"
)

// dayFirstLayouts and monthFirstLayouts use unpadded elements so both "5-1-2018"
// and "05-01-2018" parse.
var (
	dayFirstLayouts   = []string{"2-1-2006", "2/1/2006", "2.1.2006", "2006-1-2"}
	monthFirstLayouts = []string{"1-2-2006", "1/2/2006", "1.2.2006", "2006-1-2"}
)

// parseLocalDate parses a date literal under the org's day-first convention,
// returning midnight of that date in the org timezone.
func parseLocalDate(value string, loc *time.Location, dayFirst bool) (time.Time, error) {
	layouts := monthFirstLayouts
	if dayFirst {
		layouts = dayFirstLayouts
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fault.Queryf("Unable to parse the date %s", value)
}

// utcRange expands a local day into the half-open UTC instant range
// [start, end) covering it. The end is the next local midnight, so days
// spanning a DST shift keep their real length.
func utcRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// orgDayRange parses a date literal and expands it per the org's timezone and
// date convention.
func orgDayRange(value string, org *entity.Org) (time.Time, time.Time, error) {
	local, err := parseLocalDate(value, org.Location(), org.DayFirst)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := utcRange(local)
	return start, end, nil
}
