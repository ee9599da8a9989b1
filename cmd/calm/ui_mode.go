package main

import (
	"fmt"
	"os"
	"strings"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI decides for the progress display, which draws on stderr so
// reports and diffs on stdout stay pipeable.
func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stderr) && os.Getenv("CI") == ""
	}
}

// readColorMode resolves --color the same way; auto colors terminals.
func readColorMode(value string, f *os.File) (bool, error) {
	mode, err := readUIMode(value)
	if err != nil {
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	switch mode {
	case uiModeOn:
		return true, nil
	case uiModeOff:
		return false, nil
	default:
		return isTerminal(f), nil
	}
}
