package main

import (
	"github.com/spf13/cobra"

	"calm/internal/workspace"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update all calm toolchains",
	Long:  `Fetch git includes, provision runtimes and run the install steps of every tool`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return a.run(ctx, "update", func(ws *workspace.Context) error {
			if err := ws.PullDependencies(ctx); err != nil {
				return err
			}
			return ws.Update(ctx)
		})
	},
}
