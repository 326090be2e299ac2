package ffi

import (
	"bytes"
	"testing"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/compiler"
	"github.com/mna/vela/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestStandardNamesAndOrder(t *testing.T) {
	tbl := Standard(&bytes.Buffer{})
	require.Equal(t, []string{"print", "exit", "time"}, tbl.Names())
}

func TestStandardPrintWritesDisplayFormAndReturnsFalse(t *testing.T) {
	var buf bytes.Buffer
	tbl := Standard(&buf)
	fn := tbl.fns["print"]
	v, err := fn(machine.Int(42))
	require.NoError(t, err)
	require.Equal(t, machine.Bool(false), v)
	require.Equal(t, "42\n", buf.String())
}

func TestStandardTimeReturnsFloat(t *testing.T) {
	tbl := Standard(&bytes.Buffer{})
	fn := tbl.fns["time"]
	v, err := fn(machine.None())
	require.NoError(t, err)
	require.Equal(t, machine.KindFloat, v.Kind())
	require.Greater(t, v.AsFloat(), 0.0)
}

func TestRegisterPreservesOrderAndReplacesCallback(t *testing.T) {
	tbl := NewTable()
	tbl.Register("a", func(v machine.Value) (machine.Value, error) { return v, nil })
	tbl.Register("b", func(v machine.Value) (machine.Value, error) { return v, nil })
	tbl.Register("a", func(machine.Value) (machine.Value, error) { return machine.Int(1), nil })
	require.Equal(t, []string{"a", "b"}, tbl.Names())

	v, err := tbl.fns["a"](machine.None())
	require.NoError(t, err)
	require.Equal(t, machine.Int(1), v)
}

func TestInstallIntoRegistersEveryEntry(t *testing.T) {
	tbl := NewTable()
	tbl.Register("double", func(v machine.Value) (machine.Value, error) {
		return machine.Int(v.AsInt() * 2), nil
	})
	vm := machine.New()
	tbl.InstallInto(vm)

	// The table's own record of the callback still works directly.
	v, err := tbl.fns["double"](machine.Int(21))
	require.NoError(t, err)
	require.Equal(t, machine.Int(42), v)

	// The VM resolves the installed name to the native when running
	// compiled code: return double(21).
	fn, err := compiler.Compile(&ast.Return{Value: &ast.Call{
		Callee: &ast.Get{Name: "double"},
		Args:   []ast.Core{&ast.Lit{Val: int64(21)}},
	}})
	require.NoError(t, err)
	v, err = vm.Run(fn)
	require.NoError(t, err)
	require.Equal(t, machine.Int(42), v)
}
