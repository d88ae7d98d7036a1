package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wasminspect-go/wasminspect/internal/debugger"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

func newDisasCmd() *cobra.Command {
	var funcName string

	cmd := &cobra.Command{
		Use:   "disas <module.wasm>",
		Short: "Print the decoded instruction stream of one exported function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			log := logrus.New()
			log.SetLevel(logrus.WarnLevel)

			bin, err := os.ReadFile(positional[0])
			if err != nil {
				return err
			}

			dbg := debugger.New(wasm.FeaturesDefault, log)
			const moduleName = "main"
			if _, err := dbg.LoadModule(moduleName, bin); err != nil {
				return err
			}
			addr, ok := dbg.LookupFunc(moduleName, funcName)
			if !ok {
				return fmt.Errorf("no exported function %q", funcName)
			}
			fn := dbg.Store.Function(addr)
			if fn.IsHost() {
				return fmt.Errorf("%q is a host function, nothing to disassemble", funcName)
			}
			body := fn.Defined.Body
			out := cmd.OutOrStdout()
			for i, in := range body {
				fmt.Fprintf(out, "%4d  %s\n", i, in.Op)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&funcName, "func", "", "exported function to disassemble")
	cmd.MarkFlagRequired("func")
	return cmd
}
