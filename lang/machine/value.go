// Package machine implements the stack-based virtual machine: the runtime
// value representation, call frames, upvalue cells, and the dispatch loop
// that executes a compiled lang/compiler.Function.
package machine

import (
	"fmt"
	"strconv"

	"github.com/mna/vela/lang/compiler"
)

// Kind is the tag of a Value's variant. The union is closed: these nine
// kinds are the only values the language can produce or manipulate.
type Kind uint8

const ( //nolint:revive
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindFunction
	KindClosure
	KindHeaped
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindFunction:
		return "function"
	case KindClosure:
		return "closure"
	case KindHeaped:
		return "heaped"
	case KindNative:
		return "native"
	default:
		return "?"
	}
}

// Value is the tagged union manipulated by the VM: None, Bool, Int, Float,
// Str, Function, Closure, HeapedData or Native. A Value is cheap to copy by
// value; Closure and HeapedData share their underlying data by reference,
// so copying a Value of either kind shares state rather than cloning it.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	fn     *compiler.Function
	clo    *Closure
	cell   *HeapedData
	native string
}

// HeapedData is a shared, mutable cell used to hold a local variable that
// has been captured by at least one closure. Promotion from a plain stack
// slot to a cell happens once, at the moment a MakeClosure first captures
// that slot (see VM.execMakeClosure and VM.captureLocal); every subsequent GetLocal/SetLocal and
// GetUpvalue/SetUpvalue on it goes through the same cell, so writes from
// any sharer are visible to all of them.
type HeapedData struct{ v Value }

func None() Value                { return Value{kind: KindNone} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int(i int64) Value           { return Value{kind: KindInt, i: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, f: f} }
func Str(s string) Value          { return Value{kind: KindStr, s: s} }
func FunctionVal(fn *compiler.Function) Value { return Value{kind: KindFunction, fn: fn} }
func ClosureVal(c *Closure) Value { return Value{kind: KindClosure, clo: c} }
func Native(name string) Value    { return Value{kind: KindNative, native: name} }
func heaped(cell *HeapedData) Value { return Value{kind: KindHeaped, cell: cell} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() bool               { return v.b }
func (v Value) AsInt() int64               { return v.i }
func (v Value) AsFloat() float64           { return v.f }
func (v Value) AsStr() string              { return v.s }
func (v Value) AsFunction() *compiler.Function { return v.fn }
func (v Value) AsClosure() *Closure         { return v.clo }
func (v Value) AsNative() string            { return v.native }

// Unwrap returns v, or the value currently held by its cell if v is
// KindHeaped. Call semantics unwrap a popped callee exactly once (spec
// section 4.4); reads through GetUpvalue unwrap implicitly by construction
// since the cell's own content, not a further HeapedData, is what's stored.
func (v Value) Unwrap() Value {
	if v.kind == KindHeaped {
		return v.cell.v
	}
	return v
}

// Truthy implements the language's truthiness rule: only Bool(false) and
// Int(0) are falsey, everything else (including Float(0) and "") is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	default:
		return true
	}
}

// Equal implements the restricted structural equality of IsEqual: only
// same-kind Int/Int, Float/Float or Bool/Bool comparisons produce their
// natural result; any other pairing - including cross-type numeric
// comparisons - is simply false, never an error.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// String renders v for the print native and for debug tracing.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "none"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindStr:
		return v.s
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.fn.Name)
	case KindClosure:
		return fmt.Sprintf("<closure %s>", v.clo.Fn.Name)
	case KindHeaped:
		return v.cell.v.String()
	case KindNative:
		return fmt.Sprintf("<native %s>", v.native)
	default:
		return "?"
	}
}

// Type returns the short type name used in runtime error messages.
func (v Value) Type() string { return v.kind.String() }

// FromConstant converts a compile-time constant pool entry (nil, bool,
// int64, float64, string or *compiler.Function) into its runtime Value.
// This is the one place lang/machine depends on the shape of
// lang/compiler's untyped constant pool.
func FromConstant(c any) Value {
	switch c := c.(type) {
	case nil:
		return None()
	case bool:
		return Bool(c)
	case int64:
		return Int(c)
	case float64:
		return Float(c)
	case string:
		return Str(c)
	case *compiler.Function:
		return FunctionVal(c)
	default:
		panic(fmt.Sprintf("machine: unsupported constant type %T", c))
	}
}
