// Package pattern implements the file and line patterns used in tool
// configurations: shell-style globs and slash-delimited regular expressions.
package pattern

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"calm/internal/fault"
)

// Kind tells a glob from a regex.
type Kind uint8

const (
	KindGlob Kind = iota + 1
	KindRegex
)

func (k Kind) String() string {
	switch k {
	case KindGlob:
		return "glob"
	case KindRegex:
		return "regex"
	default:
		return "invalid"
	}
}

// `/body/flags` with optional surrounding whitespace.
var regexLiteral = regexp.MustCompile(`(?s)^\s*/(.*)/([a-z]*)\s*$`)

// Pattern is immutable once parsed and safe for concurrent use.
type Pattern struct {
	kind   Kind
	source string
	glob   string
	re     *regexp.Regexp
}

// Parse classifies and compiles s.
func Parse(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, fault.Configf("empty pattern")
	}
	if m := regexLiteral.FindStringSubmatch(s); m != nil {
		re, err := compileRegex(m[1], m[2])
		if err != nil {
			return Pattern{}, fault.Wrap(fault.KindConfig, err, "invalid regex pattern %q", s)
		}
		return Pattern{kind: KindRegex, source: s, re: re}, nil
	}
	if !doublestar.ValidatePattern(s) {
		return Pattern{}, fault.Configf("invalid glob pattern %q", s)
	}
	return Pattern{kind: KindGlob, source: s, glob: s}, nil
}

// MustParse is Parse for patterns known at compile time.
func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func compileRegex(body, flags string) (*regexp.Regexp, error) {
	// Go regexps are always Unicode aware.
	flags = strings.ReplaceAll(flags, "u", "")
	if flags != "" {
		body = "(?" + flags + ")" + body
	}
	return regexp.Compile(body)
}

func (p Pattern) Kind() Kind { return p.kind }

func (p Pattern) String() string { return p.source }

// IsZero reports whether p was never parsed.
func (p Pattern) IsZero() bool { return p.kind == 0 }

// MatchesPath reports whether the file path p matches. Globs without a
// separator also match against the base name, so "*.py" selects nested files.
func (p Pattern) MatchesPath(name string) bool {
	name = filepath.ToSlash(name)
	switch p.kind {
	case KindGlob:
		if ok, _ := doublestar.Match(p.glob, name); ok {
			return true
		}
		if !strings.Contains(p.glob, "/") {
			ok, _ := doublestar.Match(p.glob, path.Base(name))
			return ok
		}
		return false
	case KindRegex:
		return p.re.MatchString(name)
	default:
		return false
	}
}

// MatchLine applies p to a line of tool output. For a regex the returned map
// holds exactly the named groups that took part in the match. A matching
// glob yields an empty map.
func (p Pattern) MatchLine(text string) (map[string]string, bool) {
	switch p.kind {
	case KindGlob:
		ok, _ := doublestar.Match(p.glob, text)
		if !ok {
			return nil, false
		}
		return map[string]string{}, true
	case KindRegex:
		idx := p.re.FindStringSubmatchIndex(text)
		if idx == nil {
			return nil, false
		}
		caps := make(map[string]string)
		for i, name := range p.re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			start, end := idx[2*i], idx[2*i+1]
			if start < 0 {
				continue
			}
			caps[name] = text[start:end]
		}
		return caps, true
	default:
		return nil, false
	}
}

// UnmarshalYAML decodes a pattern from a scalar node.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fault.Wrap(fault.KindConfig, err, "line %d: pattern must be a string", node.Line)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML encodes the pattern as its source text.
func (p Pattern) MarshalYAML() (any, error) {
	return p.source, nil
}

// Set is an ordered list of patterns.
type Set []Pattern

// MatchesPath reports whether any pattern in the set matches name.
func (s Set) MatchesPath(name string) bool {
	for _, p := range s {
		if p.MatchesPath(name) {
			return true
		}
	}
	return false
}
