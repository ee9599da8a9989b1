package main

import (
	"github.com/spf13/cobra"

	"calm/internal/workspace"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clears the runtime cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		a.useUI = false
		return a.run(cmd.Context(), "clear-cache", func(ws *workspace.Context) error {
			return ws.ClearCache()
		})
	},
}
