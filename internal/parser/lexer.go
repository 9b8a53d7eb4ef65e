package parser

import (
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWord
	TokenPhrase
	TokenField
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
)

type Token struct {
	Type  TokenType
	Value string
}

type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	switch l.input[l.pos] {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "("}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")"}
	case '"':
		return l.readPhrase()
	}

	// A word ends at whitespace, a paren or a quote. A colon right after a
	// non-empty word turns it into a field name.
	start := l.pos
	for l.pos < len(l.input) && !isBoundary(l.input[l.pos]) {
		if l.input[l.pos] == ':' && l.pos > start {
			word := string(l.input[start:l.pos])
			l.pos++ // eat ':'
			return Token{Type: TokenField, Value: word}
		}
		l.pos++
	}

	word := string(l.input[start:l.pos])

	// Operators are recognised only in upper case so that titles like
	// "War and Peace" stay plain text.
	switch word {
	case "AND":
		return Token{Type: TokenAnd, Value: word}
	case "OR":
		return Token{Type: TokenOr, Value: word}
	case "NOT":
		return Token{Type: TokenNot, Value: word}
	}

	return Token{Type: TokenWord, Value: word}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

// readPhrase reads up to the closing quote; an unterminated phrase runs to
// the end of input.
func (l *Lexer) readPhrase() Token {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		b.WriteRune(l.input[l.pos])
		l.pos++
	}
	if l.pos < len(l.input) {
		l.pos++
	}
	return Token{Type: TokenPhrase, Value: b.String()}
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '"'
}
