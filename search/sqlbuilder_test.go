package search

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thisisjab/contactsearch/fault"
)

const valueSubquery = "id IN (SELECT contact_id FROM contact_values WHERE "

func TestAsSQL(t *testing.T) {
	org := testOrg()

	// the org day 2018-01-15 at UTC+2 covers these UTC instants
	jan15Start := time.Date(2018, 1, 14, 22, 0, 0, 0, time.UTC)
	jan15End := time.Date(2018, 1, 15, 22, 0, 0, 0, time.UTC)
	jan16End := time.Date(2018, 1, 16, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		text     string
		optimize bool
		query    string
		args     []any
	}{
		// text fields compare through the combined index key
		{
			`gender = male`, false,
			valueSubquery + "(toString(contact_field_id) || '|' || upperUTF8(substringUTF8(string_value, 1, 32))) = ?)",
			[]any{"12|MALE"},
		},
		// index keys cover only the first 32 characters of the value
		{
			`gender = "abcdefghijklmnopqrstuvwxyz0123456789"`, false,
			valueSubquery + "(toString(contact_field_id) || '|' || upperUTF8(substringUTF8(string_value, 1, 32))) = ?)",
			[]any{"12|ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"},
		},
		{
			`age >= 18`, false,
			valueSubquery + "contact_field_id = ? AND decimal_value >= ?)",
			[]any{int64(11), decimal.RequireFromString("18")},
		},
		// date equality is containment in the org-local day
		{
			`joined = 15-01-2018`, false,
			valueSubquery + "contact_field_id = ? AND datetime_value >= ? AND datetime_value < ?)",
			[]any{int64(13), jan15Start, jan15End},
		},
		// after a day means on or after the next day's start
		{
			`joined > 15-01-2018`, false,
			valueSubquery + "contact_field_id = ? AND datetime_value >= ?)",
			[]any{int64(13), jan15End},
		},
		{
			`joined <= 15-01-2018`, false,
			valueSubquery + "contact_field_id = ? AND datetime_value < ?)",
			[]any{int64(13), jan15End},
		},
		{
			`state = Kano`, false,
			valueSubquery + "contact_field_id = ? AND location_value IN (SELECT id FROM boundaries WHERE level = ? AND lowerUTF8(name) = lowerUTF8(?)))",
			[]any{int64(14), 1, "Kano"},
		},
		{
			`ward = Jega`, false,
			valueSubquery + "contact_field_id = ? AND location_value IN (SELECT id FROM boundaries WHERE level = ? AND lowerUTF8(name) = lowerUTF8(?)))",
			[]any{int64(16), 3, "Jega"},
		},
		// attributes and URN schemes query contact columns and the URN table
		{
			`name ~ bob`, false,
			"positionCaseInsensitive(name, ?) > 0",
			[]any{"bob"},
		},
		{
			`name = "Bob Smith"`, false,
			"lowerUTF8(name) = lowerUTF8(?)",
			[]any{"Bob Smith"},
		},
		{
			`tel has 0788`, false,
			"id IN (SELECT contact_id FROM contact_urns WHERE org_id = ? AND scheme = ? AND positionCaseInsensitive(path, ?) > 0)",
			[]any{int64(1), "tel", "0788"},
		},
		// combinations parenthesize
		{
			`gender = male AND age > 18`, false,
			"(" + valueSubquery + "(toString(contact_field_id) || '|' || upperUTF8(substringUTF8(string_value, 1, 32))) = ?) AND " +
				valueSubquery + "contact_field_id = ? AND decimal_value > ?))",
			[]any{"12|MALE", int64(11), decimal.RequireFromString("18")},
		},
		// an optimized OR of equalities on one field folds to a membership test
		{
			`gender = male OR gender = female`, true,
			valueSubquery + "(toString(contact_field_id) || '|' || upperUTF8(substringUTF8(string_value, 1, 32))) IN (?, ?))",
			[]any{"12|MALE", "12|FEMALE"},
		},
		{
			`age = 18 OR age = 21 OR age = 35`, true,
			valueSubquery + "contact_field_id = ? AND decimal_value IN (?, ?, ?))",
			[]any{int64(11), decimal.RequireFromString("18"), decimal.RequireFromString("21"), decimal.RequireFromString("35")},
		},
		{
			`ward = Jega OR ward = Bichi`, true,
			valueSubquery + "contact_field_id = ? AND location_value IN (SELECT id FROM boundaries WHERE level = ? AND lowerUTF8(name) IN (lowerUTF8(?), lowerUTF8(?))))",
			[]any{int64(16), 3, "Jega", "Bichi"},
		},
		// a non-equality comparator blocks folding but still shares a sub-query
		{
			`age > 18 AND age <= 60`, true,
			valueSubquery + "(contact_field_id = ? AND decimal_value > ?) AND (contact_field_id = ? AND decimal_value <= ?))",
			[]any{int64(11), decimal.RequireFromString("18"), int64(11), decimal.RequireFromString("60")},
		},
		// date equality is a range, so date ORs never fold
		{
			`joined = 15-01-2018 OR joined = 16-01-2018`, true,
			valueSubquery + "(contact_field_id = ? AND datetime_value >= ? AND datetime_value < ?) OR (contact_field_id = ? AND datetime_value >= ? AND datetime_value < ?))",
			[]any{int64(13), jan15Start, jan15End, int64(13), jan15End, jan16End},
		},
		// is-set conditions check the value column for NULL
		{
			`age != ""`, false,
			"id IN (SELECT contact_id FROM contact_values WHERE contact_field_id = ? AND decimal_value IS NOT NULL)",
			[]any{int64(11)},
		},
		{
			`gender = ""`, false,
			"id NOT IN (SELECT contact_id FROM contact_values WHERE contact_field_id = ? AND string_value IS NOT NULL)",
			[]any{int64(12)},
		},
		{
			`tel != ""`, false,
			"id IN (SELECT contact_id FROM contact_urns WHERE org_id = ? AND scheme = ?)",
			[]any{int64(1), "tel"},
		},
		{
			`name != ""`, false,
			"NOT (name = '' OR name IS NULL)",
			nil,
		},
		{
			`name = ""`, false,
			"(name = '' OR name IS NULL)",
			nil,
		},
	}

	for _, test := range tests {
		q := mustParse(t, test.text, test.optimize, false)
		props := mustResolve(t, q, org)

		result, err := q.AsSQL(org, props)
		if err != nil {
			t.Errorf("unexpected error compiling %q: %v", test.text, err)
			continue
		}

		if result.Query != test.query {
			t.Errorf("wrong sql for %q.\ngot  %s\nwant %s", test.text, result.Query, test.query)
		}
		if !argsEqual(result.Args, test.args) {
			t.Errorf("wrong args for %q.\ngot  %v\nwant %v", test.text, result.Args, test.args)
		}
	}
}

func TestAsSQLAnonSchemes(t *testing.T) {
	org := anonOrg()

	for _, text := range []string{`tel = 0788123123`, `tel != ""`} {
		q := mustParse(t, text, false, true)
		props := mustResolve(t, q, org)

		result, err := q.AsSQL(org, props)
		if err != nil {
			t.Fatalf("unexpected error compiling %q: %v", text, err)
		}
		if result.Query != "id = -1" || len(result.Args) != 0 {
			t.Errorf("expected %q to match nothing for an anonymized org, got %s %v", text, result.Query, result.Args)
		}
	}
}

func TestAsSQLErrors(t *testing.T) {
	org := testOrg()

	tests := map[string]string{
		`gender > x`:    "Can't query text fields with >",
		`age ~ 5`:       "Can't query number fields with ~",
		`state ~ Kano`:  "Unsupported comparator ~ for location field",
		`age = x`:       "x isn't a valid number",
		`joined = kano`: "Unable to parse the date kano",
		`name > bob`:    "Can't query contact properties with >",
		`tel > 5`:       "Can't query contact URNs with >",
		`age > ""`:      "Invalid operator for empty string comparison",
	}

	for text, expected := range tests {
		q := mustParse(t, text, false, false)
		props := mustResolve(t, q, org)

		_, err := q.AsSQL(org, props)
		if err == nil {
			t.Errorf("expected error compiling %q, got none", text)
			continue
		}
		if !fault.IsBadQuery(err) || err.Error() != expected {
			t.Errorf("wrong error for %q. got %q, want %q", text, err.Error(), expected)
		}
	}
}

func TestAsSQLIDIsSet(t *testing.T) {
	org := anonOrg()

	q := mustParse(t, `id != ""`, false, true)
	props := mustResolve(t, q, org)

	_, err := q.AsSQL(org, props)
	if err == nil || err.Error() != "All contacts have an ID, you cannot check if 'id' is set" {
		t.Fatalf("wrong error for id is-set check: %v", err)
	}
}

// argsEqual compares argument slices by value, using instant equality for
// times and numeric equality for decimals.
func argsEqual(got, want []any) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		switch w := want[i].(type) {
		case time.Time:
			g, ok := got[i].(time.Time)
			if !ok || !g.Equal(w) {
				return false
			}
		case decimal.Decimal:
			g, ok := got[i].(decimal.Decimal)
			if !ok || g.Cmp(w) != 0 {
				return false
			}
		default:
			if !reflect.DeepEqual(got[i], want[i]) {
				return false
			}
		}
	}
	return true
}
