// Command ifjc reads SRC source from stdin and writes IFJcode24 assembly to
// stdout, per spec.md §2's batch compiler contract: no flags, no config
// file, a single diagnostic line to stderr and a fixed exit code (spec.md
// §6) on the first error.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ifjc24/ifjc/pkg"
)

func main() {
	os.Exit(run())
}

func run() int {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	c := ifjc.NewCompiler()
	if diag := c.Compile(os.Stdin, out); diag != nil {
		fmt.Fprintln(os.Stderr, diag.Error())
		return diag.Kind.ExitCode()
	}
	return 0
}
