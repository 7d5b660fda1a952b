// Package parser turns contact search text into an ast query tree. The
// grammar is small: conditions of the form `prop comparator literal`, bare
// terms that become implicit conditions, AND/OR combinations (adjacency is an
// implicit AND) and parenthesized grouping.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thisisjab/contactsearch/fault"
	"github.com/thisisjab/contactsearch/search/ast"
	"github.com/thisisjab/contactsearch/search/lexer"
	"github.com/thisisjab/contactsearch/search/token"
)

var (
	telValueRegex         = regexp.MustCompile(`^[+ \d\-()]+$`)
	cleanSpecialCharRegex = regexp.MustCompile(`[ \-()]+`)
)

type Parser struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token

	// asAnon changes how bare terms resolve: anonymized orgs search by
	// numeric id instead of identity handles.
	asAnon bool
}

func New(l *lexer.Lexer, asAnon bool) *Parser {
	p := &Parser{
		l:      l,
		asAnon: asAnon,
	}

	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Parse parses the given text into a query tree.
func Parse(text string, asAnon bool) (ast.QueryNode, error) {
	p := New(lexer.New(text), asAnon)

	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.EOF {
		return nil, p.errorAt(p.curToken)
	}

	return node, nil
}

func (p *Parser) parseExpression() (ast.QueryNode, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.QueryNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == token.OR {
		p.nextToken()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = ast.NewBoolCombination(ast.BoolOr, left, right)
	}

	return left, nil
}

// parseAnd handles both the AND keyword and adjacency: two expressions with
// nothing between them combine as an implicit AND.
func (p *Parser) parseAnd() (ast.QueryNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.curToken.Type {
		case token.AND:
			p.nextToken()
		case token.TEXT, token.LPAREN:
			// adjacent expression, implicit AND
		default:
			return left, nil
		}

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		left = ast.NewBoolCombination(ast.BoolAnd, left, right)
	}
}

func (p *Parser) parsePrimary() (ast.QueryNode, error) {
	switch p.curToken.Type {
	case token.LPAREN:
		p.nextToken()

		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if p.curToken.Type != token.RPAREN {
			return nil, p.errorAt(p.curToken)
		}
		p.nextToken()

		return node, nil

	case token.TEXT:
		text := p.curToken.Literal
		p.nextToken()

		if p.curToken.Type != token.COMPARATOR {
			return p.implicitCondition(text), nil
		}

		comparator := p.curToken.Literal
		p.nextToken()

		if p.curToken.Type != token.TEXT && p.curToken.Type != token.STRING {
			return nil, p.errorAt(p.curToken)
		}
		value := p.curToken.Literal
		p.nextToken()

		return ast.NewCondition(strings.ToLower(text), comparator, value), nil

	default:
		return nil, p.errorAt(p.curToken)
	}
}

// implicitCondition resolves a bare term: a numeric id for anonymized orgs, a
// identity-handle substring search if the term looks like a phone number, and
// a name substring search otherwise.
func (p *Parser) implicitCondition(value string) ast.QueryNode {
	if p.asAnon {
		if id, err := strconv.Atoi(value); err == nil {
			return ast.NewCondition("id", "=", strconv.Itoa(id))
		}
	} else if telValueRegex.MatchString(value) {
		return ast.NewCondition("tel", "~", value)
	}

	return ast.NewCondition("name", "~", value)
}

// errorAt translates a parse failure into the user-facing search error,
// naming the offending token's text when there is any.
func (p *Parser) errorAt(tok token.Token) error {
	if tok.Type != token.EOF && tok.Literal != "" {
		return fault.Queryf("Search query contains an error at: %s", tok.Literal)
	}
	return fault.New(fault.BadQueryCode, "Search query contains an error")
}

// IsPhoneNumber checks whether text looks like a phone number and if so
// returns a copy with spaces, dashes and parentheses stripped, so a pasted
// number tokenizes as a single term.
func IsPhoneNumber(text string) (bool, string) {
	if telValueRegex.MatchString(text) {
		return true, cleanSpecialCharRegex.ReplaceAllString(text, "")
	}
	return false, ""
}
