package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"calm/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "calm",
	Short:         "Calm makes your development experience delightful",
	Long:          `calm provisions linters and formatters declared in .calm/calm.yml and runs them over your project`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		profileCleanup = stopProfiling
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		return nil
	},
}

// traceCleanup flushes the tracer once the command has finished.
var traceCleanup = func() {}

// profileCleanup stops the profilers started by the profiling flags.
var profileCleanup = func() {}

// main loads .env, registers subcommands and persistent flags and runs the
// root command. Errors are printed with their cause chain; a QuietExit only
// sets the exit status.
func main() {
	// .env рядом с проектом, как и раньше
	_ = godotenv.Load()

	rootCmd.Version = version.Version

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(whichCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("ui", "auto", "live progress display (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show per-tool timing information")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace verbosity (off|error|tool|step|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "ring", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 2048, "events kept in the trace ring buffer")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to the file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to the file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to the file")

	err := rootCmd.Execute()
	if err != nil {
		dumpTraceRing(os.Stderr, err)
	}
	traceCleanup()
	profileCleanup()
	os.Exit(exitCode(os.Stderr, err))
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
