package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"calm/internal/formatting"
	"calm/internal/workspace"
)

var formatCmd = &cobra.Command{
	Use:   "format [flags] [files...]",
	Short: "Format the given files with configured formatters",
	Long: `Copy the files to scratch files, run every formatter over the copies and
print a unified diff, or write the result back with --write.`,
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().Bool("write", false, "write the changes back instead of printing a diff")
	formatCmd.Flags().Bool("changed-files", false, "format files changed in the current git work tree")
}

func runFormat(cmd *cobra.Command, args []string) error {
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return fmt.Errorf("failed to get write flag: %w", err)
	}
	changed, err := cmd.Flags().GetBool("changed-files")
	if err != nil {
		return fmt.Errorf("failed to get changed-files flag: %w", err)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	files, _, err := selectFiles(ctx, a.ws.BaseDir(), args, false, changed)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	fr, err := formatFiles(ctx, a, files)
	if err != nil {
		return err
	}
	defer fr.Close()
	if write {
		return fr.Apply()
	}
	return fr.Diff(cmd.OutOrStdout())
}

func formatFiles(ctx context.Context, a *app, files []string) (*formatting.Result, error) {
	var fr *formatting.Result
	err := a.run(ctx, "format", func(ws *workspace.Context) error {
		var err error
		fr, err = ws.Format(ctx, files)
		return err
	})
	return fr, err
}
