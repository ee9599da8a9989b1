package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"calm/internal/fault"
	"calm/internal/trace"
)

// exitCode prints err and maps it to a process exit status.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var quiet fault.QuietExit
	if errors.As(err, &quiet) {
		return quiet.Code
	}
	printError(w, err)
	return 1
}

// printError renders err, each of its causes and, with CALM_BACKTRACE=1,
// the stack where it was created.
func printError(w io.Writer, err error) {
	chain := fault.Chain(err)
	if len(chain) == 0 {
		chain = []string{err.Error()}
	}
	fmt.Fprintf(w, "error: %s\n", chain[0])
	for _, c := range chain[1:] {
		fmt.Fprintf(w, "  caused by: %s\n", c)
	}
	if os.Getenv("CALM_BACKTRACE") == "1" {
		if st := fault.StackTrace(err); st != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, st)
		}
	}
}

// dumpTraceRing writes the ring buffer when a command fails hard.
func dumpTraceRing(w io.Writer, err error) {
	var quiet fault.QuietExit
	if errors.As(err, &quiet) {
		return
	}
	ring, ok := trace.Ring(activeTracer)
	if !ok {
		return
	}
	fmt.Fprintln(w, "trace: last events before failure:")
	if dumpErr := ring.Dump(w, trace.FormatText); dumpErr != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", dumpErr)
	}
}
