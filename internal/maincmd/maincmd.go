// Package maincmd wires flag parsing and stdio onto the vela pipeline: it
// is the collaborator the top-level spec describes only at the interface
// level - positional source filenames executed in order, or an
// interactive REPL when none are given, with -d/--debug enabling tracing
// of every stage (spec section 6).
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "vela"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<path>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the %[1]s expression language.

Each <path> is a source file, compiled and executed in order; globals
declared in one file are visible to the next. With no <path> given, an
interactive REPL is started instead: each line typed at the "%[2]s"
prompt is lexed, parsed, compiled and run as its own top-level program,
with globals persisting across lines.

Valid flag options are:
       -d --debug                Trace the token stream, the parsed Core
                                  tree, bytecode disassembly and a
                                  per-instruction stack trace to standard
                                  error as each stage runs.
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName, replPrompt)
)

// Cmd is the top-level command. Unlike a subcommand-driven tool, vela has
// exactly one mode of operation (run files, or REPL) selected by whether
// positional arguments are present at all.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Debug   bool `flag:"d,debug"`

	args []string
}

func (c *Cmd) SetArgs(args []string)    { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

// Validate requires nothing beyond what the flag parser itself checks -
// any number of positional file arguments (including zero) is valid.
func (c *Cmd) Validate() error { return nil }

// Main parses args, handles -h/-v, and otherwise either runs c.args as
// source files in sequence or, with none, starts the REPL.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	var err error
	if len(c.args) == 0 {
		err = c.repl(ctx, stdio)
	} else {
		err = c.runFiles(ctx, stdio)
	}
	if err != nil {
		return mainer.Failure
	}
	return mainer.Success
}
