package diag

import (
	"strings"

	"golang.org/x/text/cases"
)

// Level orders diagnostics by importance. The zero value is LevelError.
type Level uint8

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	}
	return "unknown"
}

var fold = cases.Fold()

// ParseLevel maps the level vocabulary accepted from tool output.
// ok is false for anything outside it.
func ParseLevel(s string) (Level, bool) {
	switch fold.String(strings.TrimSpace(s)) {
	case "error", "e", "err":
		return LevelError, true
	case "warning", "w", "warn":
		return LevelWarning, true
	case "info":
		return LevelInfo, true
	}
	return LevelError, false
}

// LevelOrDefault parses s and falls back to LevelError.
func LevelOrDefault(s string) Level {
	l, _ := ParseLevel(s)
	return l
}
