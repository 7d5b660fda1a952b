package search

import (
	"fmt"
	"strings"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/fault"
	"github.com/thisisjab/contactsearch/search/ast"
	"github.com/thisisjab/contactsearch/search/es"
)

// AsIndexQuery compiles the query into a document index expression over the
// nested fields/urns documents of a contact.
func (q *ContactQuery) AsIndexQuery(org *entity.Org, props PropMap) (es.Query, error) {
	c := &indexCompiler{org: org, props: props}
	return c.node(q.Root)
}

type indexCompiler struct {
	org   *entity.Org
	props PropMap
}

func (c *indexCompiler) node(node ast.QueryNode) (es.Query, error) {
	switch n := node.(type) {
	case *ast.IsSetCondition:
		return c.isSetCondition(n)
	case *ast.Condition:
		return c.condition(n)
	case *ast.SinglePropCombination:
		return c.combine(n.Op, n.Children)
	case *ast.BoolCombination:
		return c.combine(n.Op, n.Children)
	default:
		panic(fmt.Sprintf("unknown query node type %T", node))
	}
}

func (c *indexCompiler) combine(op ast.BoolOp, children []ast.QueryNode) (es.Query, error) {
	queries := make([]es.Query, len(children))
	for i, child := range children {
		q, err := c.node(child)
		if err != nil {
			return nil, err
		}
		queries[i] = q
	}

	if op == ast.BoolAnd {
		return es.All(queries...), nil
	}
	return es.Any(queries...), nil
}

func (c *indexCompiler) condition(n *ast.Condition) (es.Query, error) {
	prop := c.props.prop(n.Prop)

	switch prop.Kind {
	case PropField:
		return c.fieldCondition(n, prop.Field)
	case PropAttribute:
		return c.attrCondition(n, prop.Name)
	case PropScheme:
		return c.schemeCondition(n, prop.Name)
	default:
		panic(fmt.Sprintf("unknown property kind %d", prop.Kind))
	}
}

func (c *indexCompiler) fieldCondition(n *ast.Condition, field *entity.Field) (es.Query, error) {
	base := es.Term("fields.field", field.UUID.String())

	var match es.Query

	switch field.ValueType {
	case entity.TypeText:
		if n.Comparator != ast.OpEq {
			return nil, fault.Queryf("Can't query text fields with %s", n.Comparator)
		}
		match = es.Term("fields.text", strings.ToLower(n.Value))

	case entity.TypeNumber:
		num, err := parseNumber(n.Value)
		if err != nil {
			return nil, err
		}
		value := num.String()
		switch n.Comparator {
		case ast.OpEq:
			match = es.Match("fields.number", value)
		case ast.OpGt:
			match = es.Range("fields.number", map[string]any{"gt": value})
		case ast.OpGte:
			match = es.Range("fields.number", map[string]any{"gte": value})
		case ast.OpLt:
			match = es.Range("fields.number", map[string]any{"lt": value})
		case ast.OpLte:
			match = es.Range("fields.number", map[string]any{"lte": value})
		default:
			return nil, fault.Queryf("Can't query number fields with %s", n.Comparator)
		}

	case entity.TypeDatetime:
		org := field.Org
		if org == nil {
			org = c.org
		}
		start, _, err := orgDayRange(n.Value, org)
		if err != nil {
			return nil, err
		}
		// the index stores field dates at day granularity
		utcDate := start.Format("2006-01-02")
		switch n.Comparator {
		case ast.OpEq:
			match = es.Match("fields.datetime", utcDate)
		case ast.OpGt:
			match = es.Range("fields.datetime", map[string]any{"gt": utcDate})
		case ast.OpGte:
			match = es.Range("fields.datetime", map[string]any{"gte": utcDate})
		case ast.OpLt:
			match = es.Range("fields.datetime", map[string]any{"lt": utcDate})
		case ast.OpLte:
			match = es.Range("fields.datetime", map[string]any{"lte": utcDate})
		default:
			return nil, fault.Queryf("Can't query date fields with %s", n.Comparator)
		}

	case entity.TypeState, entity.TypeDistrict, entity.TypeWard:
		if n.Comparator != ast.OpEq {
			return nil, fault.Queryf("Unsupported comparator %s for location field", n.Comparator)
		}
		match = es.Term(locationIndexFields[field.ValueType]+".keyword", strings.ToLower(n.Value))

	default:
		panic(fmt.Sprintf("unrecognized contact field type %q", field.ValueType))
	}

	return es.Nested("fields", es.All(base, match)), nil
}

var locationIndexFields = map[entity.ValueType]string{
	entity.TypeState:    "fields.state",
	entity.TypeDistrict: "fields.district",
	entity.TypeWard:     "fields.ward",
}

func (c *indexCompiler) attrCondition(n *ast.Condition, attr string) (es.Query, error) {
	value := strings.ToLower(n.Value)

	switch attr {
	case "name":
		switch n.Comparator {
		case ast.OpEq:
			return es.Term("name.keyword", value), nil
		case ast.OpContains:
			return es.Match("name", value), nil
		default:
			return nil, fault.Queryf("Can't query contact properties with %s", n.Comparator)
		}
	case "id":
		return es.Ids(value), nil
	default:
		panic(fmt.Sprintf("unknown attribute %q", attr))
	}
}

func (c *indexCompiler) schemeCondition(n *ast.Condition, scheme string) (es.Query, error) {
	if c.org.IsAnon {
		return es.Ids(-1), nil
	}

	base := es.Term("urns.scheme", strings.ToLower(scheme))
	value := strings.ToLower(n.Value)

	var match es.Query
	switch n.Comparator {
	case ast.OpEq:
		match = es.Term("urns.path.keyword", value)
	case ast.OpContains:
		match = es.MatchPhrase("urns.path", value)
	default:
		return nil, fault.Queryf("Can't query contact URNs with %s", n.Comparator)
	}

	return es.Nested("urns", es.All(base, match)), nil
}

func (c *indexCompiler) isSetCondition(n *ast.IsSetCondition) (es.Query, error) {
	isSet, err := n.IsSet()
	if err != nil {
		return nil, err
	}

	prop := c.props.prop(n.Prop)

	switch prop.Kind {
	case PropField:
		field := prop.Field
		indexField, ok := valueIndexFields[field.ValueType]
		if !ok {
			panic(fmt.Sprintf("unrecognized contact field type %q", field.ValueType))
		}
		nested := es.Nested("fields", es.All(
			es.Term("fields.field", field.UUID.String()),
			es.Exists(indexField),
		))
		if isSet {
			return nested, nil
		}
		return es.Not(nested), nil

	case PropScheme:
		if c.org.IsAnon {
			return es.Ids(-1), nil
		}
		nested := es.Nested("urns", es.All(
			es.Exists("urns.path"),
			es.Term("urns.scheme", strings.ToLower(prop.Name)),
		))
		if isSet {
			return nested, nil
		}
		return es.Not(nested), nil

	case PropAttribute:
		switch prop.Name {
		case "name":
			if isSet {
				return es.Not(es.Term("name", "")), nil
			}
			return es.Term("name", ""), nil
		case "id":
			return nil, fault.New(fault.BadQueryCode, "All contacts have an ID, you cannot check if 'id' is set")
		default:
			panic(fmt.Sprintf("unknown attribute %q", prop.Name))
		}

	default:
		panic(fmt.Sprintf("unknown property kind %d", prop.Kind))
	}
}

var valueIndexFields = map[entity.ValueType]string{
	entity.TypeText:     "fields.text",
	entity.TypeNumber:   "fields.number",
	entity.TypeDatetime: "fields.datetime",
	entity.TypeState:    "fields.state",
	entity.TypeDistrict: "fields.district",
	entity.TypeWard:     "fields.ward",
}
