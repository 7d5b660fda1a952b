package search

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/fault"
	"github.com/thisisjab/contactsearch/search/ast"
)

// stringValueComparisonLimit: the index for equality checks on string values
// covers only the first 32 characters. Fixed by the stored index expression;
// changing it desynchronizes predicates from the index.
const stringValueComparisonLimit = 32

// textIndexExpr is the combined index key expression over the value table. It
// must match the stored index: (contact_field_id || '|' || UPPER(string_value)).
const textIndexExpr = "(toString(contact_field_id) || '|' || upperUTF8(substringUTF8(string_value, 1, 32)))"

// boundaryLevels maps location value types to their administrative boundary
// hierarchy level.
var boundaryLevels = map[entity.ValueType]int{
	entity.TypeState:    1,
	entity.TypeDistrict: 2,
	entity.TypeWard:     3,
}

// BuildResult holds a generated SQL fragment or statement and its arguments.
type BuildResult struct {
	Query string
	Args  []any
}

// AsSQL compiles the query into a relational predicate over the contacts
// table, using sub-queries against the value and URN tables for fields and
// identity handles.
func (q *ContactQuery) AsSQL(org *entity.Org, props PropMap) (BuildResult, error) {
	c := &sqlCompiler{org: org, props: props}

	frag, args, err := c.node(q.Root)
	if err != nil {
		return BuildResult{}, err
	}

	return BuildResult{Query: frag, Args: args}, nil
}

type sqlCompiler struct {
	org   *entity.Org
	props PropMap
}

func (c *sqlCompiler) node(node ast.QueryNode) (string, []any, error) {
	switch n := node.(type) {
	case *ast.IsSetCondition:
		return c.isSetCondition(n)
	case *ast.Condition:
		return c.condition(n)
	case *ast.SinglePropCombination:
		return c.singlePropCombination(n)
	case *ast.BoolCombination:
		return c.combine(n.Op, n.Children)
	default:
		panic(fmt.Sprintf("unknown query node type %T", node))
	}
}

// combine joins compiled children with the boolean operator, parenthesized so
// precedence survives embedding in a larger clause.
func (c *sqlCompiler) combine(op ast.BoolOp, children []ast.QueryNode) (string, []any, error) {
	parts := make([]string, len(children))
	var args []any

	for i, child := range children {
		frag, childArgs, err := c.node(child)
		if err != nil {
			return "", nil, err
		}
		parts[i] = frag
		args = append(args, childArgs...)
	}

	return "(" + strings.Join(parts, " "+string(op)+" ") + ")", args, nil
}

func (c *sqlCompiler) condition(n *ast.Condition) (string, []any, error) {
	prop := c.props.prop(n.Prop)

	switch prop.Kind {
	case PropField:
		frag, args, err := c.valueParams(prop.Field, n.Comparator, n.Value)
		if err != nil {
			return "", nil, err
		}
		return "id IN (SELECT contact_id FROM contact_values WHERE " + frag + ")", args, nil

	case PropScheme:
		if c.org.IsAnon {
			return "id = -1", nil, nil
		}
		return c.urnQuery(prop.Name, n.Comparator, n.Value)

	case PropAttribute:
		return c.attrQuery(prop.Name, n.Comparator, n.Value)

	default:
		panic(fmt.Sprintf("unknown property kind %d", prop.Kind))
	}
}

func (c *sqlCompiler) attrQuery(attr string, cmp ast.Comparator, value string) (string, []any, error) {
	col := attr
	if attr == "id" {
		col = "toString(id)"
	}

	switch cmp {
	case ast.OpEq:
		return "lowerUTF8(" + col + ") = lowerUTF8(?)", []any{value}, nil
	case ast.OpContains:
		return "positionCaseInsensitive(" + col + ", ?) > 0", []any{value}, nil
	default:
		return "", nil, fault.Queryf("Can't query contact properties with %s", cmp)
	}
}

func (c *sqlCompiler) urnQuery(scheme string, cmp ast.Comparator, value string) (string, []any, error) {
	var pathClause string
	switch cmp {
	case ast.OpEq:
		pathClause = "lowerUTF8(path) = lowerUTF8(?)"
	case ast.OpContains:
		pathClause = "positionCaseInsensitive(path, ?) > 0"
	default:
		return "", nil, fault.Queryf("Can't query contact URNs with %s", cmp)
	}

	frag := "id IN (SELECT contact_id FROM contact_urns WHERE org_id = ? AND scheme = ? AND " + pathClause + ")"
	return frag, []any{c.org.ID, scheme, value}, nil
}

// valueParams builds the value-table clause for a single condition on a field.
func (c *sqlCompiler) valueParams(field *entity.Field, cmp ast.Comparator, value string) (string, []any, error) {
	switch field.ValueType {
	case entity.TypeText:
		if cmp != ast.OpEq {
			return "", nil, fault.Queryf("Can't query text fields with %s", cmp)
		}
		return textIndexExpr + " = ?", []any{textIndexKey(field, value)}, nil

	case entity.TypeNumber:
		op, ok := numberOps[cmp]
		if !ok {
			return "", nil, fault.Queryf("Can't query number fields with %s", cmp)
		}
		num, err := parseNumber(value)
		if err != nil {
			return "", nil, err
		}
		return "contact_field_id = ? AND decimal_value " + op + " ?", []any{field.ID, num}, nil

	case entity.TypeDatetime:
		return c.datetimeParams(field, cmp, value)

	case entity.TypeState, entity.TypeDistrict, entity.TypeWard:
		if cmp != ast.OpEq {
			return "", nil, fault.Queryf("Unsupported comparator %s for location field", cmp)
		}
		frag := "contact_field_id = ? AND location_value IN " +
			"(SELECT id FROM boundaries WHERE level = ? AND lowerUTF8(name) = lowerUTF8(?))"
		return frag, []any{field.ID, boundaryLevels[field.ValueType], value}, nil

	default:
		panic(fmt.Sprintf("unrecognized contact field type %q", field.ValueType))
	}
}

var numberOps = map[ast.Comparator]string{
	ast.OpEq:  "=",
	ast.OpGt:  ">",
	ast.OpGte: ">=",
	ast.OpLt:  "<",
	ast.OpLte: "<=",
}

// datetimeParams expands a date literal into the UTC instant range for that
// local day. Equality is range containment; < excludes and <= includes the
// whole day, symmetric for > and >=.
func (c *sqlCompiler) datetimeParams(field *entity.Field, cmp ast.Comparator, value string) (string, []any, error) {
	org := field.Org
	if org == nil {
		org = c.org
	}

	start, end, err := orgDayRange(value, org)
	if err != nil {
		return "", nil, err
	}

	switch cmp {
	case ast.OpEq:
		return "contact_field_id = ? AND datetime_value >= ? AND datetime_value < ?", []any{field.ID, start, end}, nil
	case ast.OpLt:
		return "contact_field_id = ? AND datetime_value < ?", []any{field.ID, start}, nil
	case ast.OpLte:
		return "contact_field_id = ? AND datetime_value < ?", []any{field.ID, end}, nil
	case ast.OpGt:
		return "contact_field_id = ? AND datetime_value >= ?", []any{field.ID, end}, nil
	case ast.OpGte:
		return "contact_field_id = ? AND datetime_value >= ?", []any{field.ID, start}, nil
	default:
		return "", nil, fault.Queryf("Can't query date fields with %s", cmp)
	}
}

// valueParamsIn builds a multi-value membership clause for an OR of
// equalities on one field. Datetime fields never reach here: their equality
// is a range, not a scalar.
func (c *sqlCompiler) valueParamsIn(field *entity.Field, values []string) (string, []any, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")

	switch field.ValueType {
	case entity.TypeText:
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = textIndexKey(field, v)
		}
		return textIndexExpr + " IN (" + placeholders + ")", args, nil

	case entity.TypeNumber:
		args := []any{field.ID}
		for _, v := range values {
			num, err := parseNumber(v)
			if err != nil {
				return "", nil, err
			}
			args = append(args, num)
		}
		return "contact_field_id = ? AND decimal_value IN (" + placeholders + ")", args, nil

	case entity.TypeState, entity.TypeDistrict, entity.TypeWard:
		lowered := strings.TrimSuffix(strings.Repeat("lowerUTF8(?), ", len(values)), ", ")
		args := []any{field.ID, boundaryLevels[field.ValueType]}
		for _, v := range values {
			args = append(args, v)
		}
		frag := "contact_field_id = ? AND location_value IN " +
			"(SELECT id FROM boundaries WHERE level = ? AND lowerUTF8(name) IN (" + lowered + "))"
		return frag, args, nil

	default:
		panic(fmt.Sprintf("unrecognized contact field type %q for membership test", field.ValueType))
	}
}

// singlePropCombination compiles same-property conditions into one value-table
// sub-query. An OR of plain equalities additionally folds into a single
// membership test instead of N clauses.
func (c *sqlCompiler) singlePropCombination(n *ast.SinglePropCombination) (string, []any, error) {
	prop := c.props.prop(n.Prop)
	if prop.Kind != PropField {
		return c.combine(n.Op, n.Children)
	}
	field := prop.Field

	conds := make([]*ast.Condition, 0, len(n.Children))
	allEquality := true
	for _, child := range n.Children {
		cond, ok := child.(*ast.Condition)
		if !ok {
			// is-set children need full per-child predicates
			return c.combine(n.Op, n.Children)
		}
		conds = append(conds, cond)
		if cond.Comparator != ast.OpEq {
			allEquality = false
		}
	}

	if n.Op == ast.BoolOr && allEquality && field.ValueType != entity.TypeDatetime {
		values := make([]string, len(conds))
		for i, cond := range conds {
			values[i] = cond.Value
		}
		frag, args, err := c.valueParamsIn(field, values)
		if err != nil {
			return "", nil, err
		}
		return "id IN (SELECT contact_id FROM contact_values WHERE " + frag + ")", args, nil
	}

	parts := make([]string, len(conds))
	var args []any
	for i, cond := range conds {
		frag, condArgs, err := c.valueParams(field, cond.Comparator, cond.Value)
		if err != nil {
			return "", nil, err
		}
		parts[i] = "(" + frag + ")"
		args = append(args, condArgs...)
	}

	clause := strings.Join(parts, " "+string(n.Op)+" ")
	return "id IN (SELECT contact_id FROM contact_values WHERE " + clause + ")", args, nil
}

func (c *sqlCompiler) isSetCondition(n *ast.IsSetCondition) (string, []any, error) {
	isSet, err := n.IsSet()
	if err != nil {
		return "", nil, err
	}

	prop := c.props.prop(n.Prop)

	switch prop.Kind {
	case PropField:
		col, ok := valueColumns[prop.Field.ValueType]
		if !ok {
			panic(fmt.Sprintf("unrecognized contact field type %q", prop.Field.ValueType))
		}
		sub := "SELECT contact_id FROM contact_values WHERE contact_field_id = ? AND " + col + " IS NOT NULL"
		if isSet {
			return "id IN (" + sub + ")", []any{prop.Field.ID}, nil
		}
		return "id NOT IN (" + sub + ")", []any{prop.Field.ID}, nil

	case PropScheme:
		if c.org.IsAnon {
			return "id = -1", nil, nil
		}
		sub := "SELECT contact_id FROM contact_urns WHERE org_id = ? AND scheme = ?"
		if isSet {
			return "id IN (" + sub + ")", []any{c.org.ID, prop.Name}, nil
		}
		return "id NOT IN (" + sub + ")", []any{c.org.ID, prop.Name}, nil

	case PropAttribute:
		if prop.Name == "id" {
			return "", nil, fault.New(fault.BadQueryCode, "All contacts have an ID, you cannot check if 'id' is set")
		}
		// not-set covers both NULL and empty string
		notSet := "(" + prop.Name + " = '' OR " + prop.Name + " IS NULL)"
		if isSet {
			return "NOT " + notSet, nil, nil
		}
		return notSet, nil, nil

	default:
		panic(fmt.Sprintf("unknown property kind %d", prop.Kind))
	}
}

var valueColumns = map[entity.ValueType]string{
	entity.TypeText:     "string_value",
	entity.TypeNumber:   "decimal_value",
	entity.TypeDatetime: "datetime_value",
	entity.TypeState:    "location_value",
	entity.TypeDistrict: "location_value",
	entity.TypeWard:     "location_value",
}

// textIndexKey reproduces the stored index key: the field's numeric id and
// the value's first 32 characters upper-cased, joined by a pipe.
func textIndexKey(field *entity.Field, value string) string {
	runes := []rune(value)
	if len(runes) > stringValueComparisonLimit {
		runes = runes[:stringValueComparisonLimit]
	}
	return fmt.Sprintf("%d|%s", field.ID, strings.ToUpper(string(runes)))
}

func parseNumber(value string) (decimal.Decimal, error) {
	num, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fault.Queryf("%s isn't a valid number", value)
	}
	return num, nil
}
