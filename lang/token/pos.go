package token

import "fmt"

// Pos is a 1-based line/column position in a single source chunk. A zero
// value means "unknown": the REPL and ad hoc tooling may not always know
// where a synthesized node originated.
type Pos struct {
	Line, Col int
}

// Unknown reports whether either coordinate of p is unset.
func (p Pos) Unknown() bool { return p.Line == 0 || p.Col == 0 }

func (p Pos) String() string {
	if p.Unknown() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}
