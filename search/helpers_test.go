package search

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/registry"
)

// A fixed field schema shared by the compiler tests: one field of each value
// type, plus an inactive field and a field of another org.
var (
	ageField      = &entity.Field{ID: 11, UUID: uuid.MustParse("40a0d270-9a20-4a09-b702-a56023a4a1a1"), Key: "age", ValueType: entity.TypeNumber, OrgID: 1, IsActive: true}
	genderField   = &entity.Field{ID: 12, UUID: uuid.MustParse("7cd2e898-8be5-4b57-a02c-83a82eeb3f2b"), Key: "gender", ValueType: entity.TypeText, OrgID: 1, IsActive: true}
	joinedField   = &entity.Field{ID: 13, UUID: uuid.MustParse("0bfe1b79-7968-4f8c-a2a9-b4f6f9c1ae3e"), Key: "joined", ValueType: entity.TypeDatetime, OrgID: 1, IsActive: true}
	stateField    = &entity.Field{ID: 14, UUID: uuid.MustParse("124fd417-131c-42a1-a83a-0d1bd1f90b33"), Key: "state", ValueType: entity.TypeState, OrgID: 1, IsActive: true}
	districtField = &entity.Field{ID: 15, UUID: uuid.MustParse("68183b2c-4f07-41a4-87cd-8221b84a1b83"), Key: "district", ValueType: entity.TypeDistrict, OrgID: 1, IsActive: true}
	wardField     = &entity.Field{ID: 16, UUID: uuid.MustParse("3216c0a0-8e22-43dc-a0e5-3a9d1b0e3a55"), Key: "ward", ValueType: entity.TypeWard, OrgID: 1, IsActive: true}
	languageField = &entity.Field{ID: 17, UUID: uuid.MustParse("f9e1a2bd-8d3f-42c1-9f35-c25b14c5e218"), Key: "language", ValueType: entity.TypeText, OrgID: 1, IsActive: true}

	retiredField  = &entity.Field{ID: 18, UUID: uuid.MustParse("d7b70d63-45b2-4f56-9a74-78cca7ebf412"), Key: "retired", ValueType: entity.TypeText, OrgID: 1, IsActive: false}
	otherOrgField = &entity.Field{ID: 19, UUID: uuid.MustParse("20b0a0a3-92f0-4a63-8f07-4e51b7e6e7f5"), Key: "elsewhere", ValueType: entity.TypeText, OrgID: 2, IsActive: true}
)

func testRegistry() *registry.Memory {
	return registry.NewMemory(
		ageField, genderField, joinedField,
		stateField, districtField, wardField,
		languageField, retiredField, otherOrgField,
	)
}

// testOrg runs two hours ahead of UTC and reads dates day-first, so date
// expansions visibly cross the UTC day boundary.
func testOrg() *entity.Org {
	return &entity.Org{ID: 1, Timezone: time.FixedZone("UTC+2", 2*60*60), DayFirst: true}
}

func anonOrg() *entity.Org {
	return &entity.Org{ID: 1, IsAnon: true, DayFirst: true}
}

func mustParse(t *testing.T, text string, optimize, asAnon bool) *ContactQuery {
	t.Helper()
	q, err := ParseQuery(text, optimize, asAnon)
	if err != nil {
		t.Fatalf("unexpected error parsing %q: %v", text, err)
	}
	return q
}

func mustResolve(t *testing.T, q *ContactQuery, org *entity.Org) PropMap {
	t.Helper()
	props, err := q.ResolveProps(testRegistry(), org)
	if err != nil {
		t.Fatalf("unexpected error resolving %s: %v", q, err)
	}
	return props
}

func strPtr(s string) *string { return &s }

func numPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return &d
}

func timePtr(v time.Time) *time.Time { return &v }
