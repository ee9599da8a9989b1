package diag

import (
	"cmp"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"calm/internal/fault"
)

// Diagnostic is one finding reported by a tool. An empty Filename marks a
// general issue; Line and Column are 1-based with 0 meaning unknown.
type Diagnostic struct {
	Filename string
	Line     uint32
	Column   uint32
	Code     string
	Message  string
	Level    Level
}

// IsGeneral reports whether the diagnostic is not tied to a file.
func (d Diagnostic) IsGeneral() bool { return d.Filename == "" }

// Compare orders by filename, line, column, code, message, then level.
func Compare(a, b Diagnostic) int {
	if c := strings.Compare(a.Filename, b.Filename); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Line, b.Line); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Column, b.Column); c != 0 {
		return c
	}
	if c := strings.Compare(a.Code, b.Code); c != 0 {
		return c
	}
	if c := strings.Compare(a.Message, b.Message); c != 0 {
		return c
	}
	return cmp.Compare(a.Level, b.Level)
}

// FromCaptures builds a diagnostic from the named groups of a lint-result
// pattern. The filename group is required; line and column default to 0.
func FromCaptures(caps map[string]string) (Diagnostic, error) {
	filename, ok := caps["filename"]
	if !ok {
		return Diagnostic{}, fault.Configf("no filename in lint result pattern")
	}
	return Diagnostic{
		Filename: filename,
		Line:     parsePosition(caps["line"]),
		Column:   parsePosition(caps["column"]),
		Code:     caps["code"],
		Message:  caps["message"],
		Level:    LevelOrDefault(caps["level"]),
	}, nil
}

func parsePosition(s string) uint32 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}
