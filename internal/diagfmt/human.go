package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"calm/internal/diag"
	"calm/internal/source"
)

const excerptCacheSize = 64

// Human prints one `path:line:col code message` line per diagnostic. The
// extended format adds the source line and a caret under the reported
// column.
func Human(w io.Writer, r *diag.Report, opts Options) error {
	pal := newPalette(opts.Color)
	files := source.NewCache(excerptCacheSize)
	extended := opts.Format == FormatHumanExtended

	for _, d := range r.Items() {
		if err := writeHumanLine(w, d, opts, pal); err != nil {
			return err
		}
		if extended {
			if err := writeExcerpt(w, d, files, opts, pal); err != nil {
				return err
			}
		}
	}
	if opts.Summary {
		return writeSummary(w, r, pal)
	}
	return nil
}

func writeHumanLine(w io.Writer, d diag.Diagnostic, opts Options, pal palette) error {
	name := GeneralName
	if !d.IsGeneral() {
		name = source.DisplayPath(d.Filename, opts.DisplayDir)
	}
	code := d.Code
	if code == "" {
		code = "E"
	}
	msg := d.Message
	if msg == "" {
		msg = "no info"
	}
	_, err := fmt.Fprintf(w, "%s:%s:%s %s %s\n",
		pal.path.Sprint(name),
		pal.number.Sprint(d.Line),
		pal.number.Sprint(d.Column),
		pal.code.Sprint(code),
		msg)
	return err
}

func writeExcerpt(w io.Writer, d diag.Diagnostic, files *source.Cache, opts Options, pal palette) error {
	if d.IsGeneral() || d.Line == 0 {
		return nil
	}
	line, ok := files.Line(d.Filename, d.Line)
	if !ok {
		return nil
	}
	ex := buildExcerpt(line, d.Column)

	text := pal.excerpt.Sprint(ex.text)
	if opts.Color && opts.Highlight {
		if hl, ok := highlight(d.Filename, ex.text); ok {
			text = hl
		}
	}
	if _, err := fmt.Fprintf(w, "  %s\n", text); err != nil {
		return err
	}
	if !ex.hasCaret {
		return nil
	}
	_, err := fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", ex.caretPad), pal.caret.Sprint(strings.Repeat("^", ex.caretLen)))
	return err
}

func writeSummary(w io.Writer, r *diag.Report, pal palette) error {
	errs, warns := r.Counts()
	c := pal.ok
	switch {
	case errs > 0:
		c = pal.errs
	case warns > 0:
		c = pal.warns
	}
	_, err := fmt.Fprintln(w, c.Sprintf("Lint finished with %d error(s) and %d warning(s).", errs, warns))
	return err
}
