// Package ffi implements the host-defined function registry: the mapping
// from a name the language can GetGlobal to a unary Go callback the VM
// dispatches into on Call (spec section 4.5, 6). It ships the three
// built-ins the interpreter always provides - print, exit and time - and
// lets a host register further callbacks before execution starts.
package ffi

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mna/vela/lang/machine"
)

// Table is an ordered-by-insertion set of named host callbacks, built up
// before a VM run and then installed onto one or more *machine.VM.
type Table struct {
	names []string
	fns   map[string]machine.NativeFunc
}

// NewTable returns an empty registry.
func NewTable() *Table {
	return &Table{fns: make(map[string]machine.NativeFunc)}
}

// Register installs fn under name, replacing any previous entry of that
// name (and keeping its original position in Names).
func (t *Table) Register(name string, fn machine.NativeFunc) {
	if _, exists := t.fns[name]; !exists {
		t.names = append(t.names, name)
	}
	t.fns[name] = fn
}

// Names returns the registered callback names in registration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// InstallInto registers every entry of t onto vm.
func (t *Table) InstallInto(vm *machine.VM) {
	for _, name := range t.names {
		vm.RegisterNative(name, t.fns[name])
	}
}

// Standard returns the table the driver installs by default: print (writes
// its argument's display form to out, returns Bool(false)), exit
// (terminates the process immediately) and time (seconds since the Unix
// epoch, as a Float). These three match the behavior spec section 6
// requires of the shipped FFI set exactly.
func Standard(out io.Writer) *Table {
	t := NewTable()
	t.Register("print", func(v machine.Value) (machine.Value, error) {
		fmt.Fprintln(out, v.String())
		return machine.Bool(false), nil
	})
	t.Register("exit", func(machine.Value) (machine.Value, error) {
		os.Exit(0)
		return machine.None(), nil // unreachable
	})
	t.Register("time", func(machine.Value) (machine.Value, error) {
		return machine.Float(float64(time.Now().UnixNano()) / 1e9), nil
	})
	return t
}
