package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"calm/internal/diag"
	"calm/internal/diagfmt"
	"calm/internal/fault"
	"calm/internal/workspace"
)

var lintCmd = &cobra.Command{
	Use:   "lint [flags] [files...]",
	Short: "Lint all files in the project or a subset",
	Long: `Run every configured linter and print the combined report.
Without file arguments each tool decides what to lint. The exit status is 1
when any error-level diagnostic was reported.`,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringP("format", "f", "", "output format (human|human-extended|simple|checkstyle|json)")
	lintCmd.Flags().Bool("all", false, "lint all files; the default when no files are given")
	lintCmd.Flags().Bool("changed-files", false, "lint files changed in the current git work tree")
}

func runLint(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if formatStr == "" {
		formatStr = a.settings.Format
	}
	format, err := diagfmt.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	changed, err := cmd.Flags().GetBool("changed-files")
	if err != nil {
		return fmt.Errorf("failed to get changed-files flag: %w", err)
	}

	ctx := cmd.Context()
	files, explicit, err := selectFiles(ctx, a.ws.BaseDir(), args, all, changed)
	if err != nil {
		return err
	}
	if changed && len(files) == 0 {
		return nil
	}

	report, err := lintReport(ctx, a, files, explicit)
	return renderLint(cmd.OutOrStdout(), report, err, diagfmt.Options{
		Format:    format,
		Color:     a.colorOut,
		Highlight: a.colorOut,
		Summary:   true,
	})
}

func lintReport(ctx context.Context, a *app, files []string, explicit bool) (*diag.Report, error) {
	var report *diag.Report
	err := a.run(ctx, "lint", func(ws *workspace.Context) error {
		var err error
		report, err = ws.Lint(ctx, files, explicit)
		return err
	})
	return report, err
}

// renderLint prints whatever was collected, even when linting stopped on
// lintErr, and then reports lintErr.
func renderLint(w io.Writer, report *diag.Report, lintErr error, opts diagfmt.Options) error {
	if report == nil {
		return lintErr
	}
	printErr := printReport(w, report, opts)
	if lintErr != nil {
		return lintErr
	}
	return printErr
}

// printReport renders report and turns errors in it into exit status 1.
func printReport(w io.Writer, report *diag.Report, opts diagfmt.Options) error {
	if opts.DisplayDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			opts.DisplayDir = cwd
		}
	}
	if err := diagfmt.Render(w, report, opts); err != nil {
		return err
	}
	if report.HasErrors() {
		return fault.QuietExit{Code: 1}
	}
	return nil
}
