package ast

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpRendersNestedStructure(t *testing.T) {
	n := &Return{Value: &Call{
		Callee: &Get{Name: "+"},
		Args:   []Core{&Lit{Val: int64(1)}, &Lit{Val: int64(2)}},
	}}
	var buf bytes.Buffer
	Dump(&buf, n)
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Return\n"))
	require.Contains(t, out, "Call")
	require.Contains(t, out, "Get +")
	require.Contains(t, out, "Lit 1")
	require.Contains(t, out, "Lit 2")
}

func TestDumpIndentsByDepth(t *testing.T) {
	n := &Block{Exprs: []Core{&Lit{Val: int64(1)}}}
	var buf bytes.Buffer
	Dump(&buf, n)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, "Block", lines[0])
	require.Equal(t, "  Lit 1", lines[1])
}
