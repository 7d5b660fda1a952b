// Package es builds document index query expressions as plain JSON-marshalable
// maps. The index adapter consumes these directly; nothing here talks to the
// index itself.
package es

// Query is one node of an index query expression.
type Query map[string]any

// Term matches a field against an exact (non-analyzed) value.
func Term(field string, value any) Query {
	return Query{"term": map[string]any{field: value}}
}

// Match runs an analyzed match on a field.
func Match(field string, value any) Query {
	return Query{"match": map[string]any{field: value}}
}

// MatchPhrase runs an analyzed phrase match on a field.
func MatchPhrase(field string, value any) Query {
	return Query{"match_phrase": map[string]any{field: value}}
}

// Range compares a field against bounds keyed by gt/gte/lt/lte.
func Range(field string, bounds map[string]any) Query {
	return Query{"range": map[string]any{field: bounds}}
}

// Exists matches documents where the field has any value.
func Exists(field string) Query {
	return Query{"exists": map[string]any{"field": field}}
}

// Ids matches documents by their identifiers.
func Ids(values ...any) Query {
	return Query{"ids": map[string]any{"values": values}}
}

// Nested scopes a query to documents nested under path.
func Nested(path string, query Query) Query {
	return Query{"nested": map[string]any{"path": path, "query": query}}
}

// All conjoins queries: every one must match.
func All(queries ...Query) Query {
	if len(queries) == 1 {
		return queries[0]
	}
	return Query{"bool": map[string]any{"must": anySlice(queries)}}
}

// Any disjoins queries: at least one must match.
func Any(queries ...Query) Query {
	if len(queries) == 1 {
		return queries[0]
	}
	return Query{"bool": map[string]any{"should": anySlice(queries), "minimum_should_match": 1}}
}

// Not inverts a query.
func Not(query Query) Query {
	return Query{"bool": map[string]any{"must_not": []any{query}}}
}

// Filter conjoins queries in non-scoring filter context.
func Filter(queries ...Query) Query {
	return Query{"bool": map[string]any{"filter": anySlice(queries)}}
}

func anySlice(queries []Query) []any {
	out := make([]any, len(queries))
	for i, q := range queries {
		out[i] = q
	}
	return out
}
