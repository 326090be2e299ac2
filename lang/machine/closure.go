package machine

import "github.com/mna/vela/lang/compiler"

// Closure is the runtime record for a function value: its compiled Function
// plus the upvalue cells it captured at the point MakeClosure ran. Closure
// identity is by reference - duplicating a Value holding a Closure shares
// the same Upvalues slice and the same underlying cells, so two closures
// produced by capturing the same variable observe each other's writes to
// it.
type Closure struct {
	Fn       *compiler.Function
	Upvalues []*HeapedData
}

// Frame is the activation record for one call: the instruction pointer into
// the executing closure's chunk, the closure itself, and stackStart, the
// index in the VM's operand stack at which this frame's local slot 0
// resides.
type Frame struct {
	ip         int
	closure    *Closure
	stackStart int
}
