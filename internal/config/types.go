// Package config loads .calm/calm.yml and the tool includes it references.
package config

import (
	"path/filepath"
	"strings"

	"calm/internal/pattern"
)

// ReportMatch names what a parse-lines match turns into.
type ReportMatch string

// ReportLintResult turns named captures into a diagnostic.
const ReportLintResult ReportMatch = "lint-result"

// ParseLines extracts structured data from matching output lines.
type ParseLines struct {
	Pattern     pattern.Pattern `yaml:"pattern"`
	ReportMatch ReportMatch     `yaml:"report-match"`
}

// StreamActions configures how one output stream of a step is read.
type StreamActions struct {
	ParseLines    *ParseLines `yaml:"parse-lines"`
	ParseLintJSON bool        `yaml:"parse-lint-json"`
}

// Command is either a shell line or an argument vector.
type Command struct {
	Shell string
	Exec  []string
}

// IsExec reports whether the command is an argument vector.
func (c Command) IsExec() bool { return c.Exec != nil }

// Name is the base name of the program, "command" when unknown.
func (c Command) Name() string {
	var first string
	if c.IsExec() {
		if len(c.Exec) > 0 {
			first = c.Exec[0]
		}
	} else if fields := strings.Fields(c.Shell); len(fields) > 0 {
		first = fields[0]
	}
	if first == "" {
		return "command"
	}
	return filepath.Base(first)
}

// LinkSpec is `src` or `src -> dst`; Dst defaults to Src.
type LinkSpec struct {
	Src string
	Dst string
}

// Step is one unit of work: a command or a symlink.
type Step struct {
	Description string
	Command     *Command
	Stdout      *StreamActions
	Stderr      *StreamActions
	Link        *LinkSpec
}

// IsLink reports whether the step creates a symlink.
func (s *Step) IsLink() bool { return s.Link != nil }

// Title is the configured description or a default naming the command or
// link source.
func (s *Step) Title() string {
	if s.Description != "" {
		return s.Description
	}
	if s.Link != nil {
		return "Linking " + s.Link.Src
	}
	return "Running " + s.Command.Name()
}

// ActionSpec selects files by pattern and runs steps on them.
type ActionSpec struct {
	Patterns pattern.Set `yaml:"patterns"`
	Run      []Step      `yaml:"run"`
}

// RuntimeConfig selects a runtime flavor and the packages to install.
type RuntimeConfig struct {
	Flavor   string            `yaml:"flavor"`
	Packages map[string]string `yaml:"packages"`
}

// Include pulls a tool definition from a directory or a git repository.
type Include struct {
	Git  string
	Rev  string
	Path string
}

// IsGit reports whether the include is a git checkout.
func (i *Include) IsGit() bool { return i.Git != "" }

// ToolSpec is one entry under `tools:`.
type ToolSpec struct {
	Include     *Include                 `yaml:"include"`
	Description string                   `yaml:"description"`
	Runtimes    map[string]RuntimeConfig `yaml:"runtimes"`
	Install     []Step                   `yaml:"install"`
	Lint        *ActionSpec              `yaml:"lint"`
	Format      *ActionSpec              `yaml:"format"`

	// Dir is where the tool's helper files live: the include checkout or
	// the .calm directory. Set by Load.
	Dir string `yaml:"-"`
}

// Tool is a named tool in declaration order.
type Tool struct {
	ID   string
	Spec *ToolSpec
}
