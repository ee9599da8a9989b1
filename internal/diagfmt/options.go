// Package diagfmt renders a diag.Report in the output formats calm supports.
package diagfmt

import (
	"fmt"
	"strings"
)

// Format selects a renderer.
type Format uint8

const (
	FormatHuman Format = iota
	FormatHumanExtended
	FormatSimple
	FormatCheckstyle
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatHuman:
		return "human"
	case FormatHumanExtended:
		return "human-extended"
	case FormatSimple:
		return "simple"
	case FormatCheckstyle:
		return "checkstyle"
	case FormatJSON:
		return "json"
	}
	return "unknown"
}

// ParseFormat converts a --format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "human", "":
		return FormatHuman, nil
	case "human-extended":
		return FormatHumanExtended, nil
	case "simple":
		return FormatSimple, nil
	case "checkstyle":
		return FormatCheckstyle, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatHuman, fmt.Errorf("invalid format: %q (expected: human|human-extended|simple|checkstyle|json)", s)
}

// GeneralName stands in for the filename of diagnostics not tied to a file.
const GeneralName = "<general>"

// Options configures Render.
type Options struct {
	Format Format
	Color  bool
	// DisplayDir makes paths under it relative in human output. Usually the
	// working directory.
	DisplayDir string
	// Highlight enables syntax highlighting of excerpts when Color is set.
	Highlight bool
	// Summary prints the closing error/warning count line (human formats).
	Summary bool
}
