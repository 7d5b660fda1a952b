// Package ast holds the parsed form of a contact search query: a tree of
// conditions and boolean combinations, addressable by property name and
// independent of any field schema.
package ast

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thisisjab/contactsearch/fault"
)

var errInvalidEmptyComparison = fault.New(fault.BadQueryCode, "Invalid operator for empty string comparison")

// Comparator is a normalized condition operator. The word aliases `is` and
// `has` are folded into `=` and `~` at construction time.
type Comparator string

const (
	OpEq       Comparator = "="
	OpNeq      Comparator = "!="
	OpGt       Comparator = ">"
	OpGte      Comparator = ">="
	OpLt       Comparator = "<"
	OpLte      Comparator = "<="
	OpContains Comparator = "~"
)

var comparatorAliases = map[string]Comparator{
	"is":  OpEq,
	"has": OpContains,
}

// BoolOp is the operator of a boolean combination.
type BoolOp string

const (
	BoolAnd BoolOp = "AND"
	BoolOr  BoolOp = "OR"
)

// QueryNode is a node in the query tree: either a condition or a boolean
// combination of other nodes. The private marker method keeps the set of
// variants closed to this package.
type QueryNode interface {
	queryNode()

	// PropNames returns the property names referenced beneath this node in
	// traversal order, duplicates included.
	PropNames() []string

	// AsText renders the node back into query language text.
	AsText() string

	// Simplify flattens nested combinations that share an operator.
	Simplify() QueryNode

	// SplitByProp groups same-property siblings into SinglePropCombinations.
	SplitByProp() QueryNode

	fmt.Stringer
}

// Condition is a leaf comparison of one property against a literal value.
type Condition struct {
	Prop       string
	Comparator Comparator
	Value      string
}

// NewCondition builds a condition from raw parsed text. The comparator is
// lowercased and aliases are resolved. An empty value is reinterpreted as a
// set-membership test and returns an IsSetCondition.
func NewCondition(prop, comparator, value string) QueryNode {
	cmp := normalizeComparator(comparator)
	if value == "" {
		return &IsSetCondition{Condition{Prop: prop, Comparator: cmp}}
	}
	return &Condition{Prop: prop, Comparator: cmp, Value: value}
}

func normalizeComparator(comparator string) Comparator {
	lowered := strings.ToLower(comparator)
	if alias, ok := comparatorAliases[lowered]; ok {
		return alias
	}
	return Comparator(lowered)
}

func (c *Condition) queryNode() {}

func (c *Condition) PropNames() []string { return []string{c.Prop} }

func (c *Condition) Simplify() QueryNode { return c }

func (c *Condition) SplitByProp() QueryNode { return c }

func (c *Condition) AsText() string {
	value := c.Value
	if _, err := decimal.NewFromString(value); err != nil {
		value = `"` + value + `"`
	}
	return fmt.Sprintf("%s %s %s", c.Prop, c.Comparator, value)
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s%s%s", c.Prop, c.Comparator, c.Value)
}

// IsSetCondition checks whether a property has any value at all. It is the
// parsed form of a comparison against the empty string: `x != ""` means "x is
// set" and `x = ""` (or `x is ""`) means "x is not set". No other comparator
// is valid on this variant.
type IsSetCondition struct {
	Condition
}

func (c *IsSetCondition) queryNode() {}

func (c *IsSetCondition) Simplify() QueryNode { return c }

func (c *IsSetCondition) SplitByProp() QueryNode { return c }

// IsSet resolves the stored comparator into the set/unset polarity, or fails
// for comparators that have no empty-string meaning.
func (c *IsSetCondition) IsSet() (bool, error) {
	switch c.Comparator {
	case OpNeq:
		return true, nil
	case OpEq:
		return false, nil
	default:
		return false, errInvalidEmptyComparison
	}
}

// BoolCombination is an AND or OR over two or more child nodes.
type BoolCombination struct {
	Op       BoolOp
	Children []QueryNode
}

// NewBoolCombination builds a combination over the given children.
func NewBoolCombination(op BoolOp, children ...QueryNode) *BoolCombination {
	return &BoolCombination{Op: op, Children: children}
}

func (b *BoolCombination) queryNode() {}

func (b *BoolCombination) PropNames() []string {
	var names []string
	for _, child := range b.Children {
		names = append(names, child.PropNames()...)
	}
	return names
}

// Simplify rewrites `OR(OR(x, y), z)` as `OR(x, y, z)`: the parser emits
// left-nested binary combinations but AND/OR are associative. Children
// combined with a different operator block flattening at this level.
func (b *BoolCombination) Simplify() QueryNode {
	children := make([]QueryNode, len(b.Children))
	for i, child := range b.Children {
		children[i] = child.Simplify()
	}

	var flattened []QueryNode
	for _, child := range children {
		comb, ok := child.(*BoolCombination)
		if !ok {
			flattened = append(flattened, child)
			continue
		}
		if comb.Op != b.Op {
			return NewBoolCombination(b.Op, children...)
		}
		flattened = append(flattened, comb.Children...)
	}

	return NewBoolCombination(b.Op, flattened...)
}

// SplitByProp rewrites `OR(a=1, b=2, a=3)` as `OR(OR(a=1, a=3), b=2)` so a
// backend can check all conditions on one property with a single sub-query.
// Groups preserve first-occurrence order; non-condition children share one
// group that never becomes a SinglePropCombination.
func (b *BoolCombination) SplitByProp() QueryNode {
	children := make([]QueryNode, len(b.Children))
	for i, child := range b.Children {
		children[i] = child.SplitByProp()
	}

	var order []string
	grouped := map[string][]QueryNode{}
	for _, child := range children {
		prop := conditionProp(child)
		if _, seen := grouped[prop]; !seen {
			order = append(order, prop)
		}
		grouped[prop] = append(grouped[prop], child)
	}

	var newChildren []QueryNode
	for _, prop := range order {
		group := grouped[prop]
		if len(group) > 1 && prop != "" {
			newChildren = append(newChildren, NewSinglePropCombination(prop, b.Op, group...))
		} else {
			newChildren = append(newChildren, group...)
		}
	}

	if len(newChildren) == 1 {
		return newChildren[0]
	}
	return NewBoolCombination(b.Op, newChildren...)
}

// conditionProp returns the property of a condition child, or "" for nodes
// that are not single-property.
func conditionProp(node QueryNode) string {
	switch n := node.(type) {
	case *Condition:
		return n.Prop
	case *IsSetCondition:
		return n.Prop
	default:
		return ""
	}
}

func (b *BoolCombination) AsText() string {
	parts := make([]string, len(b.Children))
	for i, child := range b.Children {
		switch child.(type) {
		case *BoolCombination, *SinglePropCombination:
			parts[i] = "(" + child.AsText() + ")"
		default:
			parts[i] = child.AsText()
		}
	}
	return strings.Join(parts, " "+string(b.Op)+" ")
}

func (b *BoolCombination) String() string {
	parts := make([]string, len(b.Children))
	for i, child := range b.Children {
		parts[i] = child.String()
	}
	return fmt.Sprintf("%s(%s)", b.Op, strings.Join(parts, ", "))
}

// SinglePropCombination is a combination whose children are all conditions on
// the same property, letting a backend query that property's value table only
// once. Built by SplitByProp, never by the parser.
type SinglePropCombination struct {
	BoolCombination
	Prop string
}

// NewSinglePropCombination panics unless every child is a condition on prop;
// a violation is a bug in the optimizer, not a user error.
func NewSinglePropCombination(prop string, op BoolOp, children ...QueryNode) *SinglePropCombination {
	for _, child := range children {
		if conditionProp(child) != prop {
			panic(fmt.Sprintf("single-prop combination on %q given child %s", prop, child))
		}
	}
	return &SinglePropCombination{
		BoolCombination: BoolCombination{Op: op, Children: children},
		Prop:            prop,
	}
}

func (s *SinglePropCombination) queryNode() {}

// Conditions returns the children with their concrete condition type.
func (s *SinglePropCombination) Conditions() []*Condition {
	conds := make([]*Condition, 0, len(s.Children))
	for _, child := range s.Children {
		switch c := child.(type) {
		case *Condition:
			conds = append(conds, c)
		case *IsSetCondition:
			conds = append(conds, &c.Condition)
		}
	}
	return conds
}

func (s *SinglePropCombination) String() string {
	parts := make([]string, len(s.Children))
	for i, child := range s.Children {
		switch cond := child.(type) {
		case *Condition:
			parts[i] = fmt.Sprintf("%s%s", cond.Comparator, cond.Value)
		case *IsSetCondition:
			parts[i] = fmt.Sprintf("%s%s", cond.Comparator, cond.Value)
		default:
			parts[i] = child.String()
		}
	}
	return fmt.Sprintf("%s[%s](%s)", s.Op, s.Prop, strings.Join(parts, ", "))
}
