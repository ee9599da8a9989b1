package diagfmt

import (
	"io"

	"calm/internal/diag"
)

// Render writes every diagnostic of r to w. The report must be complete;
// callers usually Sort it first.
func Render(w io.Writer, r *diag.Report, opts Options) error {
	switch opts.Format {
	case FormatHuman, FormatHumanExtended:
		return Human(w, r, opts)
	case FormatSimple:
		return Simple(w, r)
	case FormatCheckstyle:
		return Checkstyle(w, r)
	case FormatJSON:
		return JSON(w, r, opts)
	}
	return Human(w, r, opts)
}
