package filter

import "fmt"

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenAnd
	TokenOr
	TokenNot
	TokenLeftParen
	TokenRightParen
	TokenIllegal
)

type Token struct {
	Type   TokenType
	Value  string
	Column int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of expression"
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

// Lexer tokenizes a tag expression. Identifiers are tag literals; the
// keywords "and", "or" and "not" are operators.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	column  int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) NextToken() Token {
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}

	tok := Token{Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
	case '(':
		tok.Type = TokenLeftParen
		tok.Value = "("
		l.readChar()
	case ')':
		tok.Type = TokenRightParen
		tok.Value = ")"
		l.readChar()
	default:
		if isIdentChar(l.ch) {
			word := l.readIdent()
			tok.Value = word
			switch word {
			case "and":
				tok.Type = TokenAnd
			case "or":
				tok.Type = TokenOr
			case "not":
				tok.Type = TokenNot
			default:
				tok.Type = TokenIdent
			}
		} else {
			tok.Type = TokenIllegal
			tok.Value = string(l.ch)
			l.readChar()
		}
	}

	return tok
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch == '-' || ch == '.' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
