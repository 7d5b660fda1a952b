package lexer

import (
	"testing"

	"github.com/thisisjab/contactsearch/search/token"
)

func TestNextToken(t *testing.T) {
	input := `name = "Bob Smith"
	age >= 18 age<65
	gender != ""
	joined = 15-01-2018
	tel has +250788123123
	(state = Kano OR state = "Abia") AND ward ~ jega
	field = "say ""hi"""
	Name IS bob
	`
	l := New(input)

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.TEXT, "name"},
		{token.COMPARATOR, "="},
		{token.STRING, "Bob Smith"},
		{token.TEXT, "age"},
		{token.COMPARATOR, ">="},
		{token.TEXT, "18"},
		{token.TEXT, "age"},
		{token.COMPARATOR, "<"},
		{token.TEXT, "65"},
		{token.TEXT, "gender"},
		{token.COMPARATOR, "!="},
		{token.STRING, ""},
		{token.TEXT, "joined"},
		{token.COMPARATOR, "="},
		{token.TEXT, "15-01-2018"},
		{token.TEXT, "tel"},
		{token.COMPARATOR, "has"},
		{token.TEXT, "+250788123123"},
		{token.LPAREN, "("},
		{token.TEXT, "state"},
		{token.COMPARATOR, "="},
		{token.TEXT, "Kano"},
		{token.OR, "OR"},
		{token.TEXT, "state"},
		{token.COMPARATOR, "="},
		{token.STRING, "Abia"},
		{token.RPAREN, ")"},
		{token.AND, "AND"},
		{token.TEXT, "ward"},
		{token.COMPARATOR, "~"},
		{token.TEXT, "jega"},
		{token.TEXT, "field"},
		{token.COMPARATOR, "="},
		{token.STRING, `say "hi"`},
		{token.TEXT, "Name"},
		{token.COMPARATOR, "IS"},
		{token.TEXT, "bob"},
		{token.EOF, ""},
	}

	for i, expected := range tests {
		tok := l.NextToken()

		if tok.Type != expected.expectedType {
			t.Fatalf("tests[%d] - wrong token type for %q. got %v, want %v", i, tok.Literal, tok.Type, expected.expectedType)
		}
		if tok.Literal != expected.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. got %q, want %q", i, tok.Literal, expected.expectedLiteral)
		}
	}
}

func TestNextTokenIllegal(t *testing.T) {
	l := New(`age ! 5`)

	l.NextToken() // age
	tok := l.NextToken()

	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token for bare `!`, got %v (%q)", tok.Type, tok.Literal)
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New(`name = "bob`)

	l.NextToken() // name
	l.NextToken() // =
	tok := l.NextToken()

	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token for unterminated string, got %v (%q)", tok.Type, tok.Literal)
	}
}
