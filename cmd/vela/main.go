// Command vela is the thinnest possible entry point: it hands os.Args and
// the process's real stdio to internal/maincmd.Cmd and exits with the
// resulting code.
package main

import (
	"os"

	"github.com/mna/mainer"
	"github.com/mna/vela/internal/maincmd"
)

var (
	// placeholder values, replaced on build
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
