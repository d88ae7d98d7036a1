package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wasminspect-go/wasminspect/internal/debugger"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

func newRunCmd() *cobra.Command {
	var funcName string
	var rawArgs []string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run <module.wasm>",
		Short: "Instantiate a module and invoke one of its exported functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			} else {
				log.SetLevel(logrus.WarnLevel)
			}

			bin, err := os.ReadFile(positional[0])
			if err != nil {
				return err
			}

			dbg := debugger.New(wasm.FeaturesDefault, log)
			const moduleName = "main"
			if _, err := dbg.LoadModule(moduleName, bin); err != nil {
				return err
			}

			if funcName == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "module loaded; no --func given, nothing invoked")
				return nil
			}

			addr, ok := dbg.LookupFunc(moduleName, funcName)
			if !ok {
				return fmt.Errorf("no exported function %q", funcName)
			}
			args, err := parseArgs(rawArgs)
			if err != nil {
				return err
			}

			result, trp := dbg.ExecuteFunc(addr, args)
			if trp != nil {
				return fmt.Errorf("trap: %v", trp)
			}
			strs := make([]string, len(result.Results))
			for i, v := range result.Results {
				strs[i] = v.String()
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(strs, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&funcName, "func", "", "exported function to invoke")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "argument as type:literal, e.g. i32:42 (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}
