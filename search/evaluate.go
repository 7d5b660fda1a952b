package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/fault"
	"github.com/thisisjab/contactsearch/search/ast"
)

// Evaluate runs the query against one denormalized contact record. A missing
// value makes a plain condition false rather than an error; only malformed
// query literals and illegal comparators fail.
func (q *ContactQuery) Evaluate(org *entity.Org, props PropMap, contact *entity.Contact) (bool, error) {
	e := &evaluator{org: org, props: props, contact: contact}
	return e.node(q.Root)
}

type evaluator struct {
	org     *entity.Org
	props   PropMap
	contact *entity.Contact
}

func (e *evaluator) node(node ast.QueryNode) (bool, error) {
	switch n := node.(type) {
	case *ast.IsSetCondition:
		return e.isSetCondition(n)
	case *ast.Condition:
		return e.condition(n)
	case *ast.SinglePropCombination:
		return e.combine(n.Op, n.Children)
	case *ast.BoolCombination:
		return e.combine(n.Op, n.Children)
	default:
		panic(fmt.Sprintf("unknown query node type %T", node))
	}
}

func (e *evaluator) combine(op ast.BoolOp, children []ast.QueryNode) (bool, error) {
	result := op == ast.BoolAnd

	for _, child := range children {
		v, err := e.node(child)
		if err != nil {
			return false, err
		}
		if op == ast.BoolAnd {
			result = result && v
		} else {
			result = result || v
		}
	}

	return result, nil
}

func (e *evaluator) condition(n *ast.Condition) (bool, error) {
	prop := e.props.prop(n.Prop)

	switch prop.Kind {
	case PropField:
		return e.fieldCondition(n, prop.Field)
	case PropAttribute:
		return e.attrCondition(n, prop.Name)
	case PropScheme:
		return e.schemeCondition(n, prop.Name)
	default:
		panic(fmt.Sprintf("unknown property kind %d", prop.Kind))
	}
}

func (e *evaluator) fieldCondition(n *ast.Condition, field *entity.Field) (bool, error) {
	value := e.contact.Fields[field.UUID]
	if value == nil {
		return false, nil
	}

	switch field.ValueType {
	case entity.TypeText:
		if n.Comparator != ast.OpEq {
			return false, fault.Queryf("Can't query text fields with %s", n.Comparator)
		}
		if value.Text == nil {
			return false, nil
		}
		return strings.EqualFold(*value.Text, n.Value), nil

	case entity.TypeNumber:
		query, err := parseNumber(n.Value)
		if err != nil {
			return false, err
		}
		if value.Number == nil {
			return false, nil
		}
		cmp := value.Number.Cmp(query)
		switch n.Comparator {
		case ast.OpEq:
			return cmp == 0, nil
		case ast.OpGt:
			return cmp > 0, nil
		case ast.OpGte:
			return cmp >= 0, nil
		case ast.OpLt:
			return cmp < 0, nil
		case ast.OpLte:
			return cmp <= 0, nil
		default:
			return false, fault.Queryf("Can't query number fields with %s", n.Comparator)
		}

	case entity.TypeDatetime:
		org := field.Org
		if org == nil {
			org = e.org
		}
		start, end, err := orgDayRange(n.Value, org)
		if err != nil {
			return false, err
		}
		if value.Datetime == nil {
			return false, nil
		}
		instant := *value.Datetime
		switch n.Comparator {
		case ast.OpEq:
			return !instant.Before(start) && instant.Before(end), nil
		case ast.OpGt:
			return !instant.Before(end), nil
		case ast.OpGte:
			return !instant.Before(start), nil
		case ast.OpLt:
			return instant.Before(start), nil
		case ast.OpLte:
			return instant.Before(end), nil
		default:
			return false, fault.Queryf("Can't query date fields with %s", n.Comparator)
		}

	case entity.TypeState, entity.TypeDistrict, entity.TypeWard:
		if n.Comparator != ast.OpEq {
			return false, fault.Queryf("Unsupported comparator %s for location field", n.Comparator)
		}
		path := ""
		switch field.ValueType {
		case entity.TypeState:
			if value.State != nil {
				path = *value.State
			}
		case entity.TypeDistrict:
			if value.District != nil {
				path = *value.District
			}
		case entity.TypeWard:
			if value.Ward != nil {
				path = *value.Ward
			}
		}
		return strings.EqualFold(locationLeaf(path), n.Value), nil

	default:
		panic(fmt.Sprintf("unrecognized contact field type %q", field.ValueType))
	}
}

// locationLeaf extracts the last segment of a hierarchical boundary path like
// "Nigeria > Kano > Nassarawa".
func locationLeaf(path string) string {
	segments := strings.Split(path, " > ")
	return segments[len(segments)-1]
}

func (e *evaluator) attrCondition(n *ast.Condition, attr string) (bool, error) {
	switch attr {
	case "name":
		switch n.Comparator {
		case ast.OpEq:
			return strings.EqualFold(e.contact.Name, n.Value), nil
		case ast.OpContains:
			return containsFold(e.contact.Name, n.Value), nil
		default:
			return false, fault.Queryf("Can't query contact properties with %s", n.Comparator)
		}
	case "id":
		if n.Comparator != ast.OpEq {
			return false, fault.Queryf("Can't query contact properties with %s", n.Comparator)
		}
		return strconv.FormatInt(e.contact.ID, 10) == n.Value, nil
	default:
		panic(fmt.Sprintf("unknown attribute %q", attr))
	}
}

func (e *evaluator) schemeCondition(n *ast.Condition, scheme string) (bool, error) {
	if e.org.IsAnon {
		return false, nil
	}

	for _, urn := range e.contact.URNs {
		if urn.Scheme != scheme {
			continue
		}
		switch n.Comparator {
		case ast.OpEq:
			if strings.EqualFold(urn.Path, n.Value) {
				return true, nil
			}
		case ast.OpContains:
			if containsFold(urn.Path, n.Value) {
				return true, nil
			}
		default:
			return false, fault.Queryf("Can't query contact URNs with %s", n.Comparator)
		}
	}

	return false, nil
}

func (e *evaluator) isSetCondition(n *ast.IsSetCondition) (bool, error) {
	isSet, err := n.IsSet()
	if err != nil {
		return false, err
	}

	prop := e.props.prop(n.Prop)

	switch prop.Kind {
	case PropField:
		value := e.contact.Fields[prop.Field.UUID]
		present := false
		if value != nil {
			switch prop.Field.ValueType {
			case entity.TypeText:
				present = value.Text != nil
			case entity.TypeNumber:
				present = value.Number != nil
			case entity.TypeDatetime:
				present = value.Datetime != nil
			case entity.TypeState:
				present = value.State != nil
			case entity.TypeDistrict:
				present = value.District != nil
			case entity.TypeWard:
				present = value.Ward != nil
			default:
				panic(fmt.Sprintf("unrecognized contact field type %q", prop.Field.ValueType))
			}
		}
		return present == isSet, nil

	case PropScheme:
		if e.org.IsAnon {
			return false, nil
		}
		exists := false
		for _, urn := range e.contact.URNs {
			if urn.Scheme == prop.Name {
				exists = true
				break
			}
		}
		return exists == isSet, nil

	case PropAttribute:
		switch prop.Name {
		case "name":
			return (e.contact.Name != "") == isSet, nil
		case "id":
			return false, fault.New(fault.BadQueryCode, "All contacts have an ID, you cannot check if 'id' is set")
		default:
			panic(fmt.Sprintf("unknown attribute %q", prop.Name))
		}

	default:
		panic(fmt.Sprintf("unknown property kind %d", prop.Kind))
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
