package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// replPrompt is printed before every line read from stdin.
const replPrompt = ">> "

// repl reads one line at a time from stdio.Stdin, compiling and running
// each as its own top-level program against a single VM so that globals
// persist across lines (spec section 6). A lex/parse/compile/runtime
// error in one line is reported and the REPL returns to the prompt,
// exactly as original_source/src/main.rs's repl loop does - it never
// aborts the process over a bad line.
func (c *Cmd) repl(ctx context.Context, stdio mainer.Stdio) error {
	vm := newVM(stdio)
	scan := bufio.NewScanner(stdio.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Fprint(stdio.Stdout, replPrompt)
		if !scan.Scan() {
			return scan.Err()
		}
		line := scan.Text()
		if line == "" {
			continue
		}
		// Errors are already reported to stdio.Stderr by runChunk; the REPL
		// itself never exits because one line failed.
		_ = runChunk(stdio, vm, []byte(line), c.Debug)
	}
}
