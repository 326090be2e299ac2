package compiler

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"github.com/mna/vela/internal/filetest"
	"github.com/mna/vela/lang/ast"
)

var update = flag.Bool("test.update-disasm-tests", false, "update the disassembly golden files")

// fixtures maps a .core testdata file's base name to the Core tree it
// stands for (there is no parser wired into this package's tests, so the
// .core file itself only documents, in surface syntax, what program the
// hand-built tree below corresponds to).
var fixtures = map[string]ast.Core{
	"return_literal": &ast.Return{Value: &ast.Lit{Val: int64(42)}},
}

// TestDisassembleGoldenFiles is the disassembly round-trip test required by
// the compiler's testable properties: compile a known program and assert
// its exact disassembly against a golden file.
func TestDisassembleGoldenFiles(t *testing.T) {
	dir := "testdata/disasm"
	for _, fi := range filetest.SourceFiles(t, dir, ".core") {
		fi := fi
		name := strings.TrimSuffix(fi.Name(), ".core")
		t.Run(name, func(t *testing.T) {
			core, ok := fixtures[name]
			if !ok {
				t.Fatalf("no fixture Core tree registered for %s", fi.Name())
			}
			fn, err := Compile(core)
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			Disassemble(&buf, fn)
			filetest.DiffOutput(t, fi, buf.String(), dir, update)
		})
	}
}
