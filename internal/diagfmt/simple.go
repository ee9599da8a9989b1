package diagfmt

import (
	"fmt"
	"io"

	"calm/internal/diag"
)

// Simple prints `path:line:col:message [code]` lines with no color, meant
// for editors and grep.
func Simple(w io.Writer, r *diag.Report) error {
	for _, d := range r.Items() {
		name := d.Filename
		if d.IsGeneral() {
			name = GeneralName
		}
		var err error
		if d.Code != "" {
			_, err = fmt.Fprintf(w, "%s:%d:%d:%s [%s]\n", name, d.Line, d.Column, d.Message, d.Code)
		} else {
			_, err = fmt.Fprintf(w, "%s:%d:%d:%s\n", name, d.Line, d.Column, d.Message)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
