package diagfmt

import "github.com/fatih/color"

type palette struct {
	path    *color.Color
	number  *color.Color
	code    *color.Color
	excerpt *color.Color
	caret   *color.Color
	errs    *color.Color
	warns   *color.Color
	ok      *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:    color.New(color.FgCyan),
		number:  color.New(color.FgYellow),
		code:    color.New(color.FgMagenta, color.Italic),
		excerpt: color.New(color.Faint),
		caret:   color.New(color.FgRed, color.Faint),
		errs:    color.New(color.FgRed, color.Bold),
		warns:   color.New(color.FgYellow, color.Bold),
		ok:      color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.path, p.number, p.code, p.excerpt, p.caret, p.errs, p.warns, p.ok} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
