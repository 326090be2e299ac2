package machine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dolthub/swiss"
	"github.com/mna/vela/lang/compiler"
)

// DefaultMaxFrames is the default cap on call-frame stack depth (spec
// section 5 recommends a configurable cap, default 1024).
const DefaultMaxFrames = 1024

// NativeFunc is the signature of a host-registered FFI callback: every
// native is unary by design (spec section 4.4/6).
type NativeFunc func(Value) (Value, error)

// VM executes compiled bytecode. It owns the call-frame stack, the operand
// value stack, the globals table and the FFI registry; there is no
// suspension or cancellation, execution runs to completion on one
// goroutine, matching the single-threaded model of spec section 5.
type VM struct {
	stack     []Value
	frames    []Frame
	globals   *swiss.Map[string, Value]
	natives   map[string]NativeFunc
	MaxFrames int

	// Trace, when non-nil, receives one line per executed instruction -
	// its disassembled form plus the operand stack at that point - for the
	// driver's -d/--debug per-instruction stack trace.
	Trace io.Writer
}

// New returns an idle VM with an empty globals table and no registered
// natives.
func New() *VM {
	return &VM{
		globals:   swiss.NewMap[string, Value](64),
		natives:   make(map[string]NativeFunc),
		MaxFrames: DefaultMaxFrames,
	}
}

// RegisterNative installs fn as the host callback reachable from the
// language under name. Registering the same name twice replaces the
// previous callback.
func (vm *VM) RegisterNative(name string, fn NativeFunc) { vm.natives[name] = fn }

// SetGlobal sets a global variable directly, bypassing the compiled
// program - used to seed REPL state or test fixtures.
func (vm *VM) SetGlobal(name string, v Value) { vm.globals.Put(name, v) }

// GetGlobal reads a global variable directly.
func (vm *VM) GetGlobal(name string) (Value, bool) { return vm.globals.Get(name) }

// Reset discards the operand and call-frame stacks, leaving globals and
// registered natives untouched. The REPL calls this after a Run that
// returned a runtime error, since a failure partway through a chunk can
// leave frames pushed or values on the operand stack that a subsequent
// line must not see (spec section 7: globals survive an error, nothing
// else needs to).
func (vm *VM) Reset() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
}

// Run wraps fn in a zero-argument Closure and executes it to
// completion, returning the value of its Return.
func (vm *VM) Run(fn *compiler.Function) (Value, error) {
	cl := &Closure{Fn: fn}
	vm.frames = append(vm.frames, Frame{closure: cl, stackStart: len(vm.stack)})
	return vm.dispatch()
}

func (vm *VM) curFrame() *Frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) dispatch() (Value, error) {
	for {
		fr := vm.curFrame()
		code := fr.closure.Fn.Chunk.Code
		if fr.ip >= len(code) {
			return None(), fmt.Errorf("%s: ran off the end of its code without a Return", fr.closure.Fn.Name)
		}

		instrStart := fr.ip
		if vm.Trace != nil {
			vm.traceInstr(fr)
		}
		op := compiler.OpCode(code[fr.ip])
		fr.ip += op.Width()

		var result Value
		var done bool
		var err error

		switch op {
		case compiler.Return:
			result, done, err = vm.execReturn()
		case compiler.Pop:
			vm.pop()
		case compiler.LoadTrue:
			vm.push(Bool(true))
		case compiler.Negate:
			err = vm.execNegate()
		case compiler.Add, compiler.Subtract, compiler.Multiply, compiler.Divide:
			err = vm.execArith(op)
		case compiler.IsEqual:
			y, x := vm.pop().Unwrap(), vm.pop().Unwrap()
			vm.push(Bool(x.Equal(y)))
		case compiler.LoadConstant:
			k := code[instrStart+1]
			vm.push(FromConstant(fr.closure.Fn.Chunk.Constants[k]))
		case compiler.SetGlobal:
			k := code[instrStart+1]
			name := fr.closure.Fn.Chunk.Constants[k].(string)
			vm.globals.Put(name, vm.pop().Unwrap())
		case compiler.GetGlobal:
			k := code[instrStart+1]
			name := fr.closure.Fn.Chunk.Constants[k].(string)
			err = vm.execGetGlobal(name)
		case compiler.SetLocal:
			i := int(code[instrStart+1])
			vm.execSetLocal(fr, i)
		case compiler.GetLocal:
			i := int(code[instrStart+1])
			vm.push(vm.stack[fr.stackStart+i])
		case compiler.GetUpvalue:
			i := int(code[instrStart+1])
			vm.push(heaped(fr.closure.Upvalues[i]))
		case compiler.SetUpvalue:
			i := int(code[instrStart+1])
			fr.closure.Upvalues[i].v = vm.stack[len(vm.stack)-1].Unwrap()
		case compiler.Call:
			n := int(code[instrStart+1])
			result, done, err = vm.execCall(n)
		case compiler.MakeClosure:
			k := code[instrStart+1]
			err = vm.execMakeClosure(fr, k)
		case compiler.JumpIfFalse:
			d := int(code[instrStart+1])<<8 | int(code[instrStart+2])
			if !vm.pop().Unwrap().Truthy() {
				fr.ip = instrStart + d
			}
		case compiler.Jump:
			d := int(code[instrStart+1])<<8 | int(code[instrStart+2])
			fr.ip = instrStart + d
		case compiler.AbsJump:
			addr := int(code[instrStart+1])<<8 | int(code[instrStart+2])
			fr.ip = addr
		default:
			err = fmt.Errorf("illegal opcode %d", op)
		}

		if err != nil {
			return None(), err
		}
		if done {
			return result, nil
		}
	}
}

func (vm *VM) execReturn() (Value, bool, error) {
	result := vm.pop().Unwrap()
	fr := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack = vm.stack[:fr.stackStart]
	if len(vm.frames) == 0 {
		return result, true, nil
	}
	vm.push(result)
	return None(), false, nil
}

func (vm *VM) execNegate() error {
	x := vm.pop().Unwrap()
	switch x.Kind() {
	case KindBool:
		vm.push(Bool(!x.AsBool()))
	case KindInt:
		vm.push(Int(-x.AsInt()))
	case KindFloat:
		vm.push(Float(-x.AsFloat()))
	default:
		return fmt.Errorf("cannot negate a value of type %s", x.Type())
	}
	return nil
}

// execArith implements the arithmetic promotion table: Int op Int stays
// Int for add/subtract/multiply; any Float operand promotes the result to
// Float; division always promotes to Float, even for two Ints.
func (vm *VM) execArith(op compiler.OpCode) error {
	y := vm.pop().Unwrap()
	x := vm.pop().Unwrap()

	xIsInt := x.Kind() == KindInt
	xIsFloat := x.Kind() == KindFloat
	yIsInt := y.Kind() == KindInt
	yIsFloat := y.Kind() == KindFloat

	if !(xIsInt || xIsFloat) || !(yIsInt || yIsFloat) {
		return fmt.Errorf("arithmetic on non-numeric types %s and %s", x.Type(), y.Type())
	}

	if op == compiler.Divide {
		vm.push(Float(asFloat(x) / asFloat(y)))
		return nil
	}
	if xIsInt && yIsInt {
		var r int64
		switch op {
		case compiler.Add:
			r = x.AsInt() + y.AsInt()
		case compiler.Subtract:
			r = x.AsInt() - y.AsInt()
		case compiler.Multiply:
			r = x.AsInt() * y.AsInt()
		}
		vm.push(Int(r))
		return nil
	}
	var r float64
	xf, yf := asFloat(x), asFloat(y)
	switch op {
	case compiler.Add:
		r = xf + yf
	case compiler.Subtract:
		r = xf - yf
	case compiler.Multiply:
		r = xf * yf
	}
	vm.push(Float(r))
	return nil
}

func asFloat(v Value) float64 {
	if v.Kind() == KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func (vm *VM) execGetGlobal(name string) error {
	if _, ok := vm.natives[name]; ok {
		vm.push(Native(name))
		return nil
	}
	v, ok := vm.globals.Get(name)
	if !ok {
		return fmt.Errorf("undefined name %q", name)
	}
	vm.push(v)
	return nil
}

// execSetLocal writes through an existing HeapedData cell if the slot was
// already promoted by an earlier capture, so closures sharing that cell
// observe the write; otherwise it stores the value directly in the slot.
func (vm *VM) execSetLocal(fr *Frame, i int) {
	v := vm.pop().Unwrap()
	idx := fr.stackStart + i
	if cur := vm.stack[idx]; cur.Kind() == KindHeaped {
		cur.cell.v = v
		return
	}
	vm.stack[idx] = v
}

func (vm *VM) execCall(n int) (Value, bool, error) {
	if len(vm.stack) < n+1 {
		return None(), false, errors.New("call with insufficient operands on stack")
	}
	callee := vm.pop().Unwrap()
	switch callee.Kind() {
	case KindClosure:
		cl := callee.AsClosure()
		if cl.Fn.Arity != n {
			return None(), false, fmt.Errorf("%s expects %d argument(s), got %d", cl.Fn.Name, cl.Fn.Arity, n)
		}
		if len(vm.frames) >= vm.MaxFrames {
			return None(), false, errors.New("stack overflow")
		}
		vm.frames = append(vm.frames, Frame{closure: cl, stackStart: len(vm.stack) - n})
		return None(), false, nil
	case KindNative:
		fn, ok := vm.natives[callee.AsNative()]
		if !ok {
			return None(), false, fmt.Errorf("unknown native function %q", callee.AsNative())
		}
		arg := None()
		if n > 0 {
			arg = vm.stack[len(vm.stack)-1].Unwrap()
		}
		vm.stack = vm.stack[:len(vm.stack)-n]
		result, err := fn(arg)
		if err != nil {
			return None(), false, err
		}
		vm.push(result)
		return None(), false, nil
	default:
		return None(), false, fmt.Errorf("cannot call a value of type %s", callee.Type())
	}
}

// execMakeClosure allocates a new Closure over the Function constant at
// index k and binds its upvalues from the descriptor byte pairs that
// immediately follow the MakeClosure instruction in the code stream.
func (vm *VM) execMakeClosure(fr *Frame, k byte) error {
	fn, ok := fr.closure.Fn.Chunk.Constants[k].(*compiler.Function)
	if !ok {
		return fmt.Errorf("MakeClosure constant %d is not a function", k)
	}
	cl := &Closure{Fn: fn, Upvalues: make([]*HeapedData, fn.UpvalueCount)}
	base := fr.ip // descriptor bytes sit right after the 2-byte MakeClosure instruction
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.currentCode(fr)[base]
		index := vm.currentCode(fr)[base+1]
		base += 2
		if isLocal != 0 {
			cl.Upvalues[i] = vm.captureLocal(fr, int(index))
		} else {
			cl.Upvalues[i] = fr.closure.Upvalues[index]
		}
	}
	fr.ip = base
	vm.push(ClosureVal(cl))
	return nil
}

func (vm *VM) currentCode(fr *Frame) []byte { return fr.closure.Fn.Chunk.Code }

// traceInstr writes the instruction about to execute, disassembled, plus the
// current operand stack, to vm.Trace.
func (vm *VM) traceInstr(fr *Frame) {
	line, _ := compiler.FormatInstr(&fr.closure.Fn.Chunk, fr.ip)
	parts := make([]string, len(vm.stack))
	for i, v := range vm.stack {
		parts[i] = v.String()
	}
	fmt.Fprintf(vm.Trace, "%s  stack=[%s]\n", line, strings.Join(parts, ", "))
}

// captureLocal promotes the stack slot at stackStart+index to a shared
// HeapedData cell the first time it is captured (capture-time promotion,
// per spec section 9); subsequent captures of the same slot, or plain
// GetLocal/SetLocal access to it, observe and share the same cell.
func (vm *VM) captureLocal(fr *Frame, index int) *HeapedData {
	idx := fr.stackStart + index
	cur := vm.stack[idx]
	if cur.Kind() == KindHeaped {
		return cur.cell
	}
	cell := &HeapedData{v: cur}
	vm.stack[idx] = heaped(cell)
	return cell
}
