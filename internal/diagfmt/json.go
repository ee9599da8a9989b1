package diagfmt

import (
	"encoding/json"
	"io"

	"calm/internal/diag"
	"calm/internal/source"
)

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Filename *string `json:"filename"`
	Line     uint32  `json:"line"`
	Column   uint32  `json:"column"`
	Code     *string `json:"code"`
	Message  *string `json:"message"`
	Level    string  `json:"level"`
}

// DiagnosticsOutput is the root of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(r *diag.Report, opts Options) DiagnosticsOutput {
	items := r.Items()
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, len(items)),
		Count:       len(items),
	}
	out.Errors, out.Warnings = r.Counts()

	for _, d := range items {
		name := ""
		if !d.IsGeneral() {
			name = source.DisplayPath(d.Filename, opts.DisplayDir)
		}
		out.Diagnostics = append(out.Diagnostics, DiagnosticJSON{
			Filename: optional(name),
			Line:     d.Line,
			Column:   d.Column,
			Code:     optional(d.Code),
			Message:  optional(d.Message),
			Level:    d.Level.String(),
		})
	}
	return out
}

// JSON writes the report using the same record shape tools emit, wrapped
// with counters.
func JSON(w io.Writer, r *diag.Report, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(r, opts))
}
