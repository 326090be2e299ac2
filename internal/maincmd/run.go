package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/compiler"
	"github.com/mna/vela/lang/ffi"
	"github.com/mna/vela/lang/machine"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/scanner"
)

// newVM builds the VM the driver runs every file or REPL line against,
// with the three standard natives (print, exit, time) installed.
func newVM(stdio mainer.Stdio) *machine.VM {
	vm := machine.New()
	ffi.Standard(stdio.Stdout).InstallInto(vm)
	return vm
}

// runFiles compiles and runs each of c.args in order against one shared VM,
// so a global declared in an earlier file is visible to a later one. It
// stops at the first file that fails to run.
func (c *Cmd) runFiles(_ context.Context, stdio mainer.Stdio) error {
	vm := newVM(stdio)
	for _, path := range c.args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		if err := runChunk(stdio, vm, src, c.Debug); err != nil {
			return err
		}
	}
	return nil
}

// runChunk lexes, parses, compiles and executes src as one top-level
// program against vm, tracing every stage to stdio.Stderr when debug is
// set (spec section 6). A scanner, parser or compiler error aborts before
// the VM ever runs; a runtime error resets the VM's stacks (but not its
// globals) so the caller can keep going.
func runChunk(stdio mainer.Stdio, vm *machine.VM, src []byte, debug bool) error {
	if debug {
		toks, serr := scanner.ScanAll(src)
		for _, tk := range toks {
			fmt.Fprintf(stdio.Stderr, "%s %s %q\n", tk.Pos, tk.Tok, tk.Lit)
		}
		if serr != nil {
			fmt.Fprintln(stdio.Stderr, serr)
			return serr
		}
	}

	core, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	if debug {
		ast.Dump(stdio.Stderr, core)
	}

	fn, err := compiler.Compile(core)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	if debug {
		compiler.Disassemble(stdio.Stderr, fn)
		vm.Trace = stdio.Stderr
	} else {
		vm.Trace = nil
	}

	if _, err := vm.Run(fn); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		vm.Reset()
		return err
	}
	return nil
}
