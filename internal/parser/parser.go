package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Columns lists the fields a query may be restricted to.
var Columns = map[string]bool{
	"title":     true,
	"author":    true,
	"publisher": true,
	"extension": true,
	"language":  true,
	"isbn":      true,
}

var fold = cases.Fold()

// Parse turns a user query into a tree. It never fails: unbalanced
// parentheses are closed at the end of input and stray operators are
// ignored. A query without any searchable text yields nil.
func Parse(input string) Node {
	p := NewParser(input)
	return p.Parse()
}

type Parser struct {
	l       *Lexer
	curTok  Token
	peekTok Token
}

func NewParser(input string) *Parser {
	p := &Parser{l: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) Parse() Node {
	var nodes []Node
	for p.curTok.Type != TokenEOF {
		if n := p.parseExpression(); n != nil {
			nodes = append(nodes, n)
		}
		// skip whatever stopped the expression (stray ')' or operator)
		if p.curTok.Type != TokenEOF {
			p.nextToken()
		}
	}
	return and(nodes)
}

// Expression -> Term { OR Term }
func (p *Parser) parseExpression() Node {
	var nodes []Node
	if n := p.parseTerm(); n != nil {
		nodes = append(nodes, n)
	}

	for p.curTok.Type == TokenOr {
		p.nextToken() // eat OR
		if n := p.parseTerm(); n != nil {
			nodes = append(nodes, n)
		}
	}

	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	return Or{Nodes: nodes}
}

// Term -> Factor { [AND] Factor }
func (p *Parser) parseTerm() Node {
	var nodes []Node
	for {
		if p.curTok.Type == TokenAnd {
			p.nextToken() // eat AND
			continue
		}
		if !p.startsFactor() {
			break
		}
		if n := p.parseFactor(); n != nil {
			nodes = append(nodes, n)
		}
	}
	return and(nodes)
}

func (p *Parser) startsFactor() bool {
	switch p.curTok.Type {
	case TokenWord, TokenPhrase, TokenField, TokenNot, TokenLParen:
		return true
	}
	return false
}

// Factor -> ( Expr ) | NOT Factor | Filter
func (p *Parser) parseFactor() Node {
	switch p.curTok.Type {
	case TokenLParen:
		p.nextToken() // eat (
		exp := p.parseExpression()
		if p.curTok.Type == TokenRParen {
			p.nextToken() // eat )
		}
		return exp

	case TokenNot:
		p.nextToken() // eat NOT
		if !p.startsFactor() {
			return nil
		}
		inner := p.parseFactor()
		if inner == nil {
			return nil
		}
		return Not{Node: inner}

	default:
		return p.parseFilter()
	}
}

// Filter -> FIELD (WORD | PHRASE) | WORD | PHRASE
func (p *Parser) parseFilter() Node {
	tok := p.curTok
	p.nextToken()

	switch tok.Type {
	case TokenField:
		field := fold.String(tok.Value)
		if p.curTok.Type != TokenWord && p.curTok.Type != TokenPhrase {
			// "title:" with nothing after it is just a word
			return newTerm("", tok.Value, false)
		}
		val := p.curTok
		p.nextToken()
		if !Columns[field] {
			return newTerm("", tok.Value+":"+val.Value, val.Type == TokenPhrase)
		}
		return newTerm(field, val.Value, val.Type == TokenPhrase)

	case TokenPhrase:
		return newTerm("", tok.Value, true)
	}
	return newTerm("", tok.Value, false)
}

// newTerm normalizes text and returns nil when nothing searchable is left.
func newTerm(field, text string, phrase bool) Node {
	// SQLite stops reading the MATCH string at NUL, so control runes never
	// reach the expression.
	text = strings.Map(dropControl, norm.NFKC.String(text))
	text = strings.TrimSpace(text)
	prefix := false
	if !phrase && strings.HasSuffix(text, "*") {
		text = strings.TrimRight(text, "*")
		prefix = true
	}
	if !searchable(text) {
		return nil
	}
	return Term{Field: field, Text: text, Phrase: phrase, Prefix: prefix}
}

func dropControl(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

func searchable(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func and(nodes []Node) Node {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	return And{Nodes: nodes}
}
