package search

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/search/es"
	"github.com/thisisjab/contactsearch/search/parser"
)

// ParseQuery parses contact search text, optionally optimizing the result.
// For non-anonymized orgs, text that looks like a phone number is cleaned of
// spacing punctuation first so the whole number tokenizes as one term.
func ParseQuery(text string, optimize bool, asAnon bool) (*ContactQuery, error) {
	if !asAnon {
		if isPhone, cleaned := parser.IsPhoneNumber(text); isPhone {
			text = cleaned
		}
	}

	root, err := parser.Parse(text, asAnon)
	if err != nil {
		return nil, err
	}

	query := &ContactQuery{Root: root}
	if optimize {
		query = query.Optimized()
	}
	return query, nil
}

// EvaluateQuery parses the text and evaluates it against one contact.
func EvaluateQuery(reg FieldRegistry, org *entity.Org, text string, contact *entity.Contact) (bool, error) {
	parsed, err := ParseQuery(text, true, org.IsAnon)
	if err != nil {
		return false, err
	}

	props, err := parsed.ResolveProps(reg, org)
	if err != nil {
		return false, err
	}

	return parsed.Evaluate(org, props, contact)
}

// SearchSQL compiles the text into a complete relational statement over the
// contacts table, always additionally scoped to the org. The parsed query is
// returned alongside for callers that need its properties.
func SearchSQL(reg FieldRegistry, org *entity.Org, text string) (BuildResult, *ContactQuery, error) {
	parsed, err := ParseQuery(text, true, org.IsAnon)
	if err != nil {
		return BuildResult{}, nil, err
	}

	props, err := parsed.ResolveProps(reg, org)
	if err != nil {
		return BuildResult{}, nil, err
	}

	predicate, err := parsed.AsSQL(org, props)
	if err != nil {
		return BuildResult{}, nil, err
	}

	result := BuildResult{
		Query: "SELECT id, org_id, name, modified_on FROM contacts WHERE org_id = ? AND (" + predicate.Query + ")",
		Args:  append([]any{org.ID}, predicate.Args...),
	}
	return result, parsed, nil
}

// IndexSearch is a compiled document index search: the query expression plus
// the routing and sort the caller passes to the index adapter. Pagination is
// the caller's concern.
type IndexSearch struct {
	Index   string
	Routing string
	Query   es.Query
	Sort    []any
}

// SearchIndex compiles the text into an index search conjoined with org and
// group membership filters, sorted newest-first.
func SearchIndex(reg FieldRegistry, org *entity.Org, text string, group uuid.UUID) (*IndexSearch, error) {
	parsed, err := ParseQuery(text, true, org.IsAnon)
	if err != nil {
		return nil, err
	}

	props, err := parsed.ResolveProps(reg, org)
	if err != nil {
		return nil, err
	}

	match, err := parsed.AsIndexQuery(org, props)
	if err != nil {
		return nil, err
	}

	scoping := es.Filter(
		es.Term("org_id", org.ID),
		es.Term("groups", group.String()),
	)

	return &IndexSearch{
		Index:   "contacts",
		Routing: strconv.FormatInt(org.ID, 10),
		Query:   es.All(match, scoping),
		Sort:    []any{map[string]any{"modified_on_mu": "desc"}},
	}, nil
}

// ExtractFields returns the field definitions a query references, for
// downstream indexing and trigger decisions.
func ExtractFields(reg FieldRegistry, org *entity.Org, text string) ([]*entity.Field, error) {
	parsed, err := ParseQuery(text, true, org.IsAnon)
	if err != nil {
		return nil, err
	}

	props, err := parsed.ResolveProps(reg, org)
	if err != nil {
		return nil, err
	}

	var fields []*entity.Field
	for _, name := range parsed.PropNames() {
		if prop := props[name]; prop.Kind == PropField {
			fields = append(fields, prop.Field)
		}
	}
	return fields, nil
}

// IsPhoneNumber checks whether text looks like a phone number, returning a
// cleaned version of it when it does.
func IsPhoneNumber(text string) (bool, string) {
	return parser.IsPhoneNumber(text)
}
