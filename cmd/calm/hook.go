package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"calm/internal/diagfmt"
	"calm/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Install or remove git hooks",
	Long: `Without flags prints whether the calm line is present in the pre-commit hook.
--exec-pre-commit is what the installed hook runs: it formats the changed files
in place and then lints them.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func init() {
	hookCmd.Flags().Bool("install", false, "install the pre-commit hook")
	hookCmd.Flags().Bool("uninstall", false, "remove the pre-commit hook")
	hookCmd.Flags().Bool("exec-pre-commit", false, "run the pre-commit checks")
	hookCmd.MarkFlagsMutuallyExclusive("install", "uninstall", "exec-pre-commit")
}

func runHook(cmd *cobra.Command, args []string) error {
	install, err := cmd.Flags().GetBool("install")
	if err != nil {
		return fmt.Errorf("failed to get install flag: %w", err)
	}
	uninstall, err := cmd.Flags().GetBool("uninstall")
	if err != nil {
		return fmt.Errorf("failed to get uninstall flag: %w", err)
	}
	execPreCommit, err := cmd.Flags().GetBool("exec-pre-commit")
	if err != nil {
		return fmt.Errorf("failed to get exec-pre-commit flag: %w", err)
	}

	if execPreCommit {
		return runPreCommit(cmd)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	mgr, err := hooks.NewManager(cmd.Context(), a.ws.BaseDir())
	if err != nil {
		return err
	}
	switch {
	case install:
		if err := mgr.Install(); err != nil {
			return err
		}
	case uninstall:
		if err := mgr.Uninstall(); err != nil {
			return err
		}
	}
	status, err := mgr.Status()
	if err != nil {
		return err
	}
	printHookStatus(cmd.OutOrStdout(), status)
	return nil
}

func printHookStatus(w io.Writer, status hooks.Status) {
	state := "not installed"
	if status.PreCommitInstalled {
		state = "installed"
	}
	fmt.Fprintln(w, "Current hook status:")
	fmt.Fprintf(w, "  %s hook: %s\n", hooks.PreCommit, state)
}

func runPreCommit(cmd *cobra.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	files, _, err := selectFiles(ctx, a.ws.BaseDir(), nil, false, true)
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
	if err := fr.Apply(); err != nil {
		return err
	}

	report, err := lintReport(ctx, a, files, true)
	return renderLint(cmd.OutOrStdout(), report, err, diagfmt.Options{
		Format:    diagfmt.FormatHuman,
		Color:     a.colorOut,
		Highlight: a.colorOut,
		Summary:   true,
	})
}
