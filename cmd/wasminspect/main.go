// Command wasminspect loads a wasm binary, runs one exported function
// against it, and prints the result. It is a thin, non-interactive driver
// over package debugger; a REPL frontend is a separate concern this binary
// does not take on.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wasminspect",
		Short: "Load and run a single WebAssembly module function",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newDisasCmd())
	return root
}
