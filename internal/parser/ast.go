package parser

// Node is an element of a parsed search query.
type Node interface {
	node()
}

// Term matches text, optionally restricted to one column.
type Term struct {
	Field  string // empty means any column
	Text   string
	Phrase bool
	Prefix bool
}

type And struct {
	Nodes []Node
}

type Or struct {
	Nodes []Node
}

type Not struct {
	Node Node
}

func (Term) node() {}
func (And) node()  {}
func (Or) node()   {}
func (Not) node()  {}
