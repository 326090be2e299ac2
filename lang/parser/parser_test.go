package parser

import (
	"testing"

	"github.com/mna/vela/lang/ast"
	"github.com/stretchr/testify/require"
)

func block(t *testing.T, src string) *ast.Block {
	t.Helper()
	core, err := Parse([]byte(src))
	require.NoError(t, err)
	b, ok := core.(*ast.Block)
	require.True(t, ok)
	return b
}

func TestParseLiterals(t *testing.T) {
	b := block(t, `1; 2.5; "hi"`)
	require.Len(t, b.Exprs, 3)
	require.Equal(t, int64(1), b.Exprs[0].(*ast.Lit).Val)
	require.Equal(t, 2.5, b.Exprs[1].(*ast.Lit).Val)
	require.Equal(t, "hi", b.Exprs[2].(*ast.Lit).Val)
}

func TestParseLetAndGet(t *testing.T) {
	b := block(t, `let x = 1; x`)
	require.Len(t, b.Exprs, 2)
	let := b.Exprs[0].(*ast.Let)
	require.Equal(t, "x", let.Name)
	get := b.Exprs[1].(*ast.Get)
	require.Equal(t, "x", get.Name)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3), not (1 + 2) * 3.
	b := block(t, `1 + 2 * 3`)
	call := b.Exprs[0].(*ast.Call)
	require.Equal(t, "+", call.Callee.(*ast.Get).Name)
	require.Equal(t, int64(1), call.Args[0].(*ast.Lit).Val)
	mul := call.Args[1].(*ast.Call)
	require.Equal(t, "*", mul.Callee.(*ast.Get).Name)
}

func TestParseUnaryMinus(t *testing.T) {
	b := block(t, `-5`)
	call := b.Exprs[0].(*ast.Call)
	require.Equal(t, "-", call.Callee.(*ast.Get).Name)
	require.Len(t, call.Args, 1)
	require.Equal(t, int64(5), call.Args[0].(*ast.Lit).Val)
}

func TestParseSingleParamLambda(t *testing.T) {
	b := block(t, `x -> x + 1`)
	lambda := b.Exprs[0].(*ast.Lambda)
	require.Equal(t, []string{"x"}, lambda.Params)
	call := lambda.Body.(*ast.Call)
	require.Equal(t, "+", call.Callee.(*ast.Get).Name)
}

func TestParseMultiParamLambda(t *testing.T) {
	b := block(t, `(a, b) -> a + b`)
	lambda := b.Exprs[0].(*ast.Lambda)
	require.Equal(t, []string{"a", "b"}, lambda.Params)
}

func TestParseZeroParamLambda(t *testing.T) {
	b := block(t, `() -> 1`)
	lambda := b.Exprs[0].(*ast.Lambda)
	require.Empty(t, lambda.Params)
}

// TestParseGroupingIsNotMistakenForLambda ensures "(n)" - a single
// parenthesized identifier with no following "->" - backtracks out of the
// speculative parameter-list parse and is treated as a plain grouping.
func TestParseGroupingIsNotMistakenForLambda(t *testing.T) {
	b := block(t, `(n)`)
	get, ok := b.Exprs[0].(*ast.Get)
	require.True(t, ok)
	require.Equal(t, "n", get.Name)
}

func TestParseCurriedCall(t *testing.T) {
	b := block(t, `make(3)(4)`)
	outer := b.Exprs[0].(*ast.Call)
	require.Len(t, outer.Args, 1)
	require.Equal(t, int64(4), outer.Args[0].(*ast.Lit).Val)
	inner := outer.Callee.(*ast.Call)
	require.Equal(t, "make", inner.Callee.(*ast.Get).Name)
	require.Equal(t, int64(3), inner.Args[0].(*ast.Lit).Val)
}

func TestParseIfWithoutElse(t *testing.T) {
	b := block(t, `if x == 0 then 1`)
	ifNode := b.Exprs[0].(*ast.If)
	require.Nil(t, ifNode.Else.(*ast.Lit).Val)
}

func TestParseLoopBreakContinue(t *testing.T) {
	b := block(t, `loop { if n == 0 then break else continue }`)
	loop := b.Exprs[0].(*ast.Loop)
	ifNode := loop.Body.(*ast.Block).Exprs[0].(*ast.If)
	_, isBreak := ifNode.Then.(*ast.Break)
	require.True(t, isBreak)
	_, isContinue := ifNode.Else.(*ast.Continue)
	require.True(t, isContinue)
}

func TestParseSetAssignment(t *testing.T) {
	b := block(t, `let c = 0; c = c + 1`)
	set := b.Exprs[1].(*ast.Set)
	require.Equal(t, "c", set.Name)
}

func TestParseBraceBlockIntroducesNestedBlockNode(t *testing.T) {
	b := block(t, `{ let x = 1; x }`)
	_, ok := b.Exprs[0].(*ast.Block)
	require.True(t, ok)
}

func TestParseRecoversFromSyntaxError(t *testing.T) {
	// The first statement is invalid (bad assignment target), but the
	// parser should recover at the ';' and still parse the second one.
	core, err := Parse([]byte(`1 = 2; let x = 3`))
	require.Error(t, err)
	b := core.(*ast.Block)
	require.Len(t, b.Exprs, 1)
	let, ok := b.Exprs[0].(*ast.Let)
	require.True(t, ok)
	require.Equal(t, "x", let.Name)
}

func TestParseFullFactorialProgram(t *testing.T) {
	src := `
let fact = n -> (
	if n == 0 then (return 1) else (return n * fact(n - 1))
);
return fact(5)
`
	core, err := Parse([]byte(src))
	require.NoError(t, err)
	b := core.(*ast.Block)
	require.Len(t, b.Exprs, 2)
	_, ok := b.Exprs[0].(*ast.Let)
	require.True(t, ok)
	_, ok = b.Exprs[1].(*ast.Return)
	require.True(t, ok)
}
