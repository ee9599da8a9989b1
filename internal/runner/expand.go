package runner

import (
	"os"
	"regexp"
)

var varRE = regexp.MustCompile(`\$(\$|[a-zA-Z0-9_]+|\([^)]+\)|\{[^}]+\})`)

// ExpandVars replaces $VAR, ${VAR} and $(VAR) using lookup first and the
// process environment second. Unknown variables expand to "" and $$ to $.
func ExpandVars(s string, lookup func(string) (string, bool)) string {
	return varRE.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1:]
		switch {
		case name == "$":
			return "$"
		case name[0] == '(' || name[0] == '{':
			name = name[1 : len(name)-1]
		}
		if lookup != nil {
			if v, ok := lookup(name); ok {
				return v
			}
		}
		return os.Getenv(name)
	})
}

// MapLookup adapts a map for ExpandVars.
func MapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}
