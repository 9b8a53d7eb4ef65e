package parser

import "strings"

// Compile parses input and renders it as an SQLite FTS5 MATCH expression.
// An empty result means the query cannot match anything.
func Compile(input string) string {
	return ToFTS(Parse(input))
}

// ToFTS renders a tree as an FTS5 expression. FTS5 has no unary NOT, so a
// negation only survives next to a positive sibling inside an And; a
// negation standing alone renders to "". An Or drops branches that render
// to "", so "a OR NOT b" searches for "a" alone.
func ToFTS(n Node) string {
	switch v := n.(type) {
	case Term:
		return termFTS(v)

	case Or:
		var parts []string
		for _, c := range v.Nodes {
			if s := ToFTS(c); s != "" {
				parts = append(parts, s)
			}
		}
		return group(parts, " OR ")

	case And:
		var pos, neg []string
		for _, c := range v.Nodes {
			if not, ok := c.(Not); ok {
				if s := ToFTS(not.Node); s != "" {
					neg = append(neg, s)
				}
				continue
			}
			s := ToFTS(c)
			if s == "" {
				return "" // one side matches nothing, so does the conjunction
			}
			pos = append(pos, s)
		}
		out := group(pos, " AND ")
		if out == "" {
			return ""
		}
		for _, s := range neg {
			out = "(" + out + " NOT " + s + ")"
		}
		return out
	}
	return ""
}

func termFTS(t Term) string {
	s := quote(t.Text)
	if t.Prefix {
		s += " *"
	}
	if t.Field != "" {
		s = t.Field + " : " + s
	}
	return s
}

func group(parts []string, op string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, op) + ")"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
