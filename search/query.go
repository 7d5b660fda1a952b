// Package search compiles contact search queries. Text is parsed into an ast
// tree, optionally optimized, then compiled against a resolved property map
// into one of three backends: a relational predicate, a document index query
// expression, or an in-memory boolean over a denormalized contact.
package search

import (
	"fmt"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/fault"
	"github.com/thisisjab/contactsearch/search/ast"
)

// PropKind tags what a property name resolved to.
type PropKind uint8

const (
	PropAttribute PropKind = iota + 1
	PropScheme
	PropField
)

// Prop is one resolved property: an attribute or scheme name, or a typed
// field definition.
type Prop struct {
	Kind  PropKind
	Name  string
	Field *entity.Field
}

// PropMap maps the property names of a query to their resolutions. Built once
// per compilation, never cached across calls.
type PropMap map[string]Prop

// FieldRegistry is the schema registry collaborator: it resolves candidate
// property keys to active field definitions scoped to an org. Implementations
// must be safe for concurrent reads.
type FieldRegistry interface {
	ActiveFields(org *entity.Org, keys []string) (map[string]*entity.Field, error)
}

// searchableSchemes are the URN schemes addressable by name in a query.
var searchableSchemes = []string{"tel", "twitter"}

// ContactQuery is a parsed contact search query owning a single root node.
type ContactQuery struct {
	Root ast.QueryNode
}

// Optimized returns a new query with the root simplified and regrouped by
// property. The receiver is left untouched.
func (q *ContactQuery) Optimized() *ContactQuery {
	return &ContactQuery{Root: q.Root.Simplify().SplitByProp()}
}

func (q *ContactQuery) AsText() string {
	return q.Root.AsText()
}

func (q *ContactQuery) String() string {
	return fmt.Sprintf("ContactQuery{%s}", q.Root)
}

// PropNames returns the distinct property names referenced by the query, in
// first-occurrence order.
func (q *ContactQuery) PropNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, name := range q.Root.PropNames() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// CanBeDynamicGroup reports whether the query may back a persisted dynamic
// group membership rule. Queries on the volatile name and id attributes are
// disallowed.
func (q *ContactQuery) CanBeDynamicGroup() bool {
	for _, name := range q.PropNames() {
		if name == "name" || name == "id" {
			return false
		}
	}
	return true
}

// ResolveProps matches every property name in the query to a field,
// searchable attribute or URN scheme. Field lookups run first, then
// attributes, then schemes; a later category overrides an earlier one, so a
// field keyed like a reserved scheme resolves as the scheme.
func (q *ContactQuery) ResolveProps(reg FieldRegistry, org *entity.Org) (PropMap, error) {
	searchableAttrs := map[string]bool{"name": true}
	if org.IsAnon {
		searchableAttrs["id"] = true
	}

	allProps := q.PropNames()

	var attrCandidates []string
	for _, name := range allProps {
		if !searchableAttrs[name] {
			attrCandidates = append(attrCandidates, name)
		}
	}

	fields, err := reg.ActiveFields(org, attrCandidates)
	if err != nil {
		return nil, err
	}

	props := make(PropMap, len(allProps))

	for key, field := range fields {
		props[key] = Prop{Kind: PropField, Name: key, Field: field}
	}

	for attr := range searchableAttrs {
		if contains(allProps, attr) {
			props[attr] = Prop{Kind: PropAttribute, Name: attr}
		}
	}

	for _, scheme := range searchableSchemes {
		if contains(allProps, scheme) {
			props[scheme] = Prop{Kind: PropScheme, Name: scheme}
		}
	}

	for _, name := range allProps {
		if _, ok := props[name]; !ok {
			return nil, fault.Queryf("Unrecognized field: %s", name)
		}
	}

	return props, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// prop looks up a resolved property; the resolver guarantees every name in
// the tree is present, so a miss is a programming error.
func (m PropMap) prop(name string) Prop {
	p, ok := m[name]
	if !ok {
		panic(fmt.Sprintf("property %q missing from resolved map", name))
	}
	return p
}
