package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"calm/internal/fault"
)

var whichCmd = &cobra.Command{
	Use:   "which <command>",
	Short: "Given a command returns the path where it lives",
	Long:  `Resolve a command in the runtime directories of the configured tools. Exits 1 when it is not found.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		path, ok, err := a.ws.FindCommand(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fault.QuietExit{Code: 1}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
