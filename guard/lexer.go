// Package guard implements the expression language used by schema
// guards and constraints: uint256 arithmetic and comparisons, boolean
// connectives, map indexing with missing keys reading zero, and the
// address(n) and sum(m) builtins. The semantics mirror the contract
// runtime so an expression that holds here holds on the ledger.
package guard

import (
	"fmt"
	"unicode"
)

// TokenType classifies lexer tokens.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent            // balances, from, paused
	TokenNumber           // 0, 100000
	TokenString           // "0x..."
	TokenOp               // ! && || == != < <= > >= + - * / %
	TokenLParen           // (
	TokenRParen           // )
	TokenLBracket         // [
	TokenRBracket         // ]
	TokenComma            // ,
	TokenIllegal
)

// Token is a single lexed token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%v, %q, %d}", t.Type, t.Literal, t.Pos)
}

// Lexer tokenizes a guard expression.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

// NewLexer creates a lexer for the given expression.
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
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.pos

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: pos}
	case '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}
	case ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}
	case ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}
	case '"':
		l.readChar()
		return Token{Type: TokenString, Literal: l.readString(), Pos: pos}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOp, Literal: "&&", Pos: pos}
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOp, Literal: "||", Pos: pos}
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOp, Literal: "==", Pos: pos}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOp, Literal: "!=", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenOp, Literal: "!", Pos: pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOp, Literal: "<=", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenOp, Literal: "<", Pos: pos}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOp, Literal: ">=", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenOp, Literal: ">", Pos: pos}
	case '+', '-', '*', '/', '%':
		op := string(l.ch)
		l.readChar()
		return Token{Type: TokenOp, Literal: op, Pos: pos}
	}

	if isDigit(l.ch) {
		return Token{Type: TokenNumber, Literal: l.readNumber(), Pos: pos}
	}
	if isIdentStart(l.ch) {
		return Token{Type: TokenIdent, Literal: l.readIdent(), Pos: pos}
	}

	illegal := string(l.ch)
	l.readChar()
	return Token{Type: TokenIllegal, Literal: illegal, Pos: pos}
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readString() string {
	start := l.pos
	for l.ch != 0 && l.ch != '"' {
		l.readChar()
	}
	s := l.input[start:l.pos]
	if l.ch == '"' {
		l.readChar()
	}
	return s
}

func isIdentStart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isIdentChar(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
