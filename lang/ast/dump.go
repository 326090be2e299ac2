package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented, line-oriented textual rendering of n to w, used
// by the driver's -d/--debug flag to trace the Core tree the parser
// produced before it reaches the compiler. Unlike Disassemble's format in
// lang/compiler, this one isn't golden-tested: it's a debugging aid, not a
// stable interface.
func Dump(w io.Writer, n Core) { dump(w, n, 0) }

func dump(w io.Writer, n Core, depth int) {
	pad := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *Lit:
		fmt.Fprintf(w, "%sLit %#v\n", pad, n.Val)
	case *Lambda:
		fmt.Fprintf(w, "%sLambda %v\n", pad, n.Params)
		dump(w, n.Body, depth+1)
	case *Let:
		fmt.Fprintf(w, "%sLet %s\n", pad, n.Name)
		dump(w, n.Value, depth+1)
	case *Set:
		fmt.Fprintf(w, "%sSet %s\n", pad, n.Name)
		dump(w, n.Value, depth+1)
	case *Get:
		fmt.Fprintf(w, "%sGet %s\n", pad, n.Name)
	case *If:
		fmt.Fprintf(w, "%sIf\n", pad)
		dump(w, n.Cond, depth+1)
		dump(w, n.Then, depth+1)
		dump(w, n.Else, depth+1)
	case *Loop:
		fmt.Fprintf(w, "%sLoop\n", pad)
		dump(w, n.Body, depth+1)
	case *Continue:
		fmt.Fprintf(w, "%sContinue\n", pad)
	case *Break:
		fmt.Fprintf(w, "%sBreak\n", pad)
	case *Block:
		fmt.Fprintf(w, "%sBlock\n", pad)
		for _, e := range n.Exprs {
			dump(w, e, depth+1)
		}
	case *Call:
		fmt.Fprintf(w, "%sCall\n", pad)
		dump(w, n.Callee, depth+1)
		for _, a := range n.Args {
			dump(w, a, depth+1)
		}
	case *Return:
		fmt.Fprintf(w, "%sReturn\n", pad)
		dump(w, n.Value, depth+1)
	default:
		fmt.Fprintf(w, "%s<unknown core node %T>\n", pad, n)
	}
}
