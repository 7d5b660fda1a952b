package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueType is the type of values a contact field holds. The single-letter
// codes match the codes stored in field configuration.
type ValueType string

const (
	TypeText     ValueType = "T"
	TypeNumber   ValueType = "N"
	TypeDatetime ValueType = "D"
	TypeState    ValueType = "S"
	TypeDistrict ValueType = "I"
	TypeWard     ValueType = "W"
)

// IsLocation reports whether the type refers to a level of the administrative
// boundary hierarchy.
func (t ValueType) IsLocation() bool {
	return t == TypeState || t == TypeDistrict || t == TypeWard
}

// Org is the organization scope every search runs under.
type Org struct {
	ID int64

	// IsAnon hides identity handles: queries touching a URN scheme must
	// match nothing for an anonymized org.
	IsAnon bool

	// Timezone is the org's local timezone, used to expand date literals
	// into UTC instant ranges.
	Timezone *time.Location

	// DayFirst selects the dd-mm-yyyy date convention over mm-dd-yyyy.
	DayFirst bool
}

// Location returns the org timezone, defaulting to UTC when unset.
func (o *Org) Location() *time.Location {
	if o.Timezone == nil {
		return time.UTC
	}
	return o.Timezone
}

// Field is an org-defined typed attribute on a contact, as returned by the
// field schema registry.
type Field struct {
	// ID is the numeric identifier used in the relational value table and
	// in the text-equality index key.
	ID int64

	// UUID keys this field's values on denormalized contact records and in
	// the document index.
	UUID uuid.UUID

	Key       string
	ValueType ValueType
	OrgID     int64
	IsActive  bool

	// Org carries the owning organization so datetime conditions can apply
	// its timezone and day-first convention.
	Org *Org
}

// URN is a single identity handle on a contact.
type URN struct {
	Scheme string `json:"scheme"`
	Path   string `json:"path"`
}

// FieldValue is one field's denormalized value on a contact record. Only the
// member matching the field's value type is set; nil members mean the value
// is absent in that representation.
type FieldValue struct {
	Text     *string          `json:"text,omitempty"`
	Number   *decimal.Decimal `json:"number,omitempty"`
	Datetime *time.Time       `json:"datetime,omitempty"`
	State    *string          `json:"state,omitempty"`
	District *string          `json:"district,omitempty"`
	Ward     *string          `json:"ward,omitempty"`
}

// Contact is the denormalized record the in-memory evaluator runs against,
// mirroring the shape of documents in the search index.
type Contact struct {
	ID         int64                     `json:"id"`
	OrgID      int64                     `json:"org_id"`
	Name       string                    `json:"name"`
	ModifiedOn time.Time                 `json:"modified_on"`
	Fields     map[uuid.UUID]*FieldValue `json:"fields"`
	URNs       []URN                     `json:"urns"`
}
