package diagfmt

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

var identRE = regexp.MustCompile(`^[\p{Lu}\p{Ll}\p{Lt}\p{Lm}\p{Lo}\p{Nl}$_][\p{Lu}\p{Ll}\p{Lt}\p{Lm}\p{Lo}\p{Nl}\p{Mn}\p{Mc}\p{Nd}\p{Pc}$_]*`)

type excerpt struct {
	text     string
	hasCaret bool
	caretPad int // display columns before the caret
	caretLen int // display columns of the caret run
}

// buildExcerpt trims line and places the caret at the 1-based byte column,
// spanning the identifier that starts there. Interior tabs are shown as a
// single space so the caret stays under its column.
func buildExcerpt(line string, column uint32) excerpt {
	stripped := strings.TrimLeftFunc(line, unicode.IsSpace)
	ex := excerpt{text: strings.ReplaceAll(strings.TrimRightFunc(stripped, unicode.IsSpace), "\t", " ")}
	if column == 0 {
		return ex
	}

	start := int(column) - 1 - (len(line) - len(stripped))
	if start < 0 || start > len(stripped) || !utf8.RuneStart(byteAt(stripped, start)) {
		return ex
	}

	ex.hasCaret = true
	ex.caretPad = displayWidth(stripped[:start])
	ex.caretLen = 1
	if m := identRE.FindString(stripped[start:]); m != "" {
		ex.caretLen = runewidth.StringWidth(m)
	}
	return ex
}

// displayWidth is the terminal width of s with every tab counted as one column.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r == '\t' {
			w++
			continue
		}
		w += runewidth.RuneWidth(r)
	}
	return w
}

func byteAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}
