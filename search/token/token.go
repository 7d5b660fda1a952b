package token

const (
	ILLEGAL TokenType = iota
	EOF

	// TEXT is a bare run of non-special characters: a property name, an
	// unquoted value, or an implicit search term.
	TEXT

	// STRING is a double-quoted literal; embedded quotes are doubled.
	STRING

	// COMPARATOR covers the symbolic operators plus the word aliases
	// `is` and `has`.
	COMPARATOR

	AND
	OR

	LPAREN
	RPAREN
)

type TokenType int

type Token struct {
	Type    TokenType
	Literal string
}
