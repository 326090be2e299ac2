package maincmd

import (
	"bytes"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

func testStdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{
		Stdin:  bytes.NewBufferString(stdin),
		Stdout: &out,
		Stderr: &errOut,
	}, &out, &errOut
}

// TestRunChunkScenarios runs each of the canonical end-to-end programs
// through the full lex/parse/compile/run pipeline and checks the exact
// printed output, covering recursion, loops with break-via-return,
// parameter mutation, upvalue capture of a parameter, a mutable upvalue
// shared across separate calls, nested conditionals with self-recursion,
// and a multi-parameter lambda returning a closure.
func TestRunChunkScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "factorial",
			src:  `let f = n -> if (n == 0) then (return 1) else (return (n * f(n - 1))); print(f(5));`,
			want: "120\n",
		},
		{
			name: "loop sum with break-via-return",
			src:  `let f = n -> {let s = 0; loop {if (n == 0) then (return s) else {s = s + n; n = n - 1}}}; print(f(10));`,
			want: "55\n",
		},
		{
			name: "closure over a parameter",
			src:  `let make = x -> return (y -> return (x + y)); let add3 = make(3); print(add3(4));`,
			want: "7\n",
		},
		{
			name: "mutable upvalue shared across calls",
			src:  `let counter = () -> {let c = 0; return (() -> {c = c + 1; return c})}; let step = counter(); print(step()); print(step()); print(step());`,
			want: "1\n2\n3\n",
		},
		{
			name: "fibonacci via nested conditionals",
			src:  `let fib = n -> if (n == 0) then (return 1) else (if (n == 1) then (return 1) else (return (fib(n - 1) + fib(n - 2)))); print(fib(10));`,
			want: "89\n",
		},
		{
			name: "multi-parameter lambda returning a closure",
			src:  `let cons = (x, y) -> return (f -> return f(x, y)); print(cons(1, 2)((x, y) -> return x));`,
			want: "1\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdio, out, errOut := testStdio("")
			vm := newVM(stdio)
			err := runChunk(stdio, vm, []byte(tc.src), false)
			require.NoError(t, err)
			require.Empty(t, errOut.String())
			require.Equal(t, tc.want, out.String())
		})
	}
}

func TestRunChunkReportsCompileErrorAndDoesNotPanic(t *testing.T) {
	stdio, _, errOut := testStdio("")
	vm := newVM(stdio)
	err := runChunk(stdio, vm, []byte(`break`), false)
	require.Error(t, err)
	require.NotEmpty(t, errOut.String())
}

func TestRunChunkReportsRuntimeErrorAndResetsVM(t *testing.T) {
	stdio, _, errOut := testStdio("")
	vm := newVM(stdio)
	err := runChunk(stdio, vm, []byte(`nope`), false)
	require.Error(t, err)
	require.NotEmpty(t, errOut.String())

	// The VM must still work for a subsequent chunk, and globals already
	// defined must still be visible (spec section 7).
	require.NoError(t, runChunk(stdio, vm, []byte(`let x = 1`), false))
	err = runChunk(stdio, vm, []byte(`print(x)`), false)
	require.NoError(t, err)
}

func TestRunChunkDebugTracesEveryStage(t *testing.T) {
	stdio, out, errOut := testStdio("")
	vm := newVM(stdio)
	err := runChunk(stdio, vm, []byte(`print(1)`), true)
	require.NoError(t, err)
	require.Equal(t, "1\n", out.String())
	trace := errOut.String()
	require.Contains(t, trace, "int literal")     // token dump
	require.Contains(t, trace, "Call")            // Core dump
	require.Contains(t, trace, "== <toplevel>")   // disassembly
	require.Contains(t, trace, "stack=[")          // per-instruction trace
}
