package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"calm/internal/prof"
)

// setupProfiling starts the profilers named by the persistent flags.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	var paths prof.Paths
	var err error
	if paths.CPU, err = root.PersistentFlags().GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if paths.Mem, err = root.PersistentFlags().GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if paths.Trace, err = root.PersistentFlags().GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if paths == (prof.Paths{}) {
		return func() {}, nil
	}

	session, err := prof.Start(paths)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}, nil
}
