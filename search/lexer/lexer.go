package lexer

import (
	"strings"

	"github.com/thisisjab/contactsearch/search/token"
)

// Lexer tokenizes contact search text one rune at a time.
type Lexer struct {
	input   []rune
	pos     int  // position of the current character in the input string
	readPos int  // position of the next character to be read
	char    rune // current character being processed
}

var keywords = map[string]token.TokenType{
	"and": token.AND,
	"or":  token.OR,
	"is":  token.COMPARATOR,
	"has": token.COMPARATOR,
}

func New(input string) *Lexer {
	l := &Lexer{[]rune(input), 0, 0, 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.char = 0
	} else {
		l.char = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	switch l.char {
	case '=':
		tok = token.Token{Type: token.COMPARATOR, Literal: "="}
	case '~':
		tok = token.Token{Type: token.COMPARATOR, Literal: "~"}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.COMPARATOR, Literal: "<="}
		} else {
			tok = token.Token{Type: token.COMPARATOR, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.COMPARATOR, Literal: ">="}
		} else {
			tok = token.Token{Type: token.COMPARATOR, Literal: ">"}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.COMPARATOR, Literal: "!="}
		} else {
			tok = token.Token{Type: token.ILLEGAL, Literal: "!"}
		}
	case '(':
		tok = token.Token{Type: token.LPAREN, Literal: "("}
	case ')':
		tok = token.Token{Type: token.RPAREN, Literal: ")"}
	case '"':
		return l.readQuotedString()
	case 0:
		tok = token.Token{Type: token.EOF, Literal: ""}
	default:
		return l.readText()
	}

	l.readChar()
	return tok
}

// readText consumes a run of non-special characters and resolves keyword
// tokens (AND, OR, is, has) case-insensitively.
func (l *Lexer) readText() token.Token {
	pos := l.pos

	for l.char != 0 && !isWhitespace(l.char) && !isSpecial(l.char) {
		l.readChar()
	}

	literal := string(l.input[pos:l.pos])

	if kw, ok := keywords[strings.ToLower(literal)]; ok {
		return token.Token{Type: kw, Literal: literal}
	}
	return token.Token{Type: token.TEXT, Literal: literal}
}

// readQuotedString consumes a double-quoted literal. A doubled quote inside
// the literal is an escaped quote character.
func (l *Lexer) readQuotedString() token.Token {
	var sb strings.Builder

	for {
		l.readChar()
		if l.char == 0 {
			// unterminated string
			return token.Token{Type: token.ILLEGAL, Literal: `"` + sb.String()}
		}
		if l.char == '"' {
			if l.peekChar() == '"' {
				l.readChar()
				sb.WriteRune('"')
				continue
			}
			break
		}
		sb.WriteRune(l.char)
	}

	l.readChar()
	return token.Token{Type: token.STRING, Literal: sb.String()}
}

func isSpecial(r rune) bool {
	return r == '(' || r == ')' || r == '"' || r == '=' || r == '<' || r == '>' || r == '!' || r == '~'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func (l *Lexer) skipWhitespace() {
	for isWhitespace(l.char) {
		l.readChar()
	}
}
