package catalog

import "slices"

// JoinColumns returns the right-hand columns to carry into a join on key:
// every column of right that is neither the key nor already present on the
// left, in right-hand order.
func JoinColumns(left, right []string, key string) []string {
	out := make([]string, 0, len(right))
	for _, c := range right {
		if c == key || slices.Contains(left, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// quoteIdent quotes a DuckDB identifier. Catalog headers contain parentheses
// such as "spt3g_ra(deg)".
func quoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}

// quoteLiteral quotes a DuckDB string literal.
func quoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}
