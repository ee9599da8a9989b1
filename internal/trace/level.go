package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff   Level = iota // no tracing
	LevelError              // only dump the ring on failure
	LevelTool               // driver + tool boundaries
	LevelStep               // every step
	LevelDebug              // process spawn, drains, exit codes
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelTool:
		return "tool"
	case LevelStep:
		return "step"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "tool":
		return LevelTool, nil
	case "step":
		return LevelStep, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|tool|step|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelTool:
		return scope <= ScopeTool
	case LevelStep:
		return scope <= ScopeStep
	case LevelDebug:
		return true
	default:
		return false
	}
}
