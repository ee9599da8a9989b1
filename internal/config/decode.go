package config

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"calm/internal/fault"
)

func (r *ReportMatch) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if ReportMatch(s) != ReportLintResult {
		return fault.Configf("line %d: unknown report-match %q (expected: lint-result)", node.Line, s)
	}
	*r = ReportMatch(s)
	return nil
}

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&c.Shell)
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return err
		}
		if argv == nil {
			argv = []string{}
		}
		c.Exec = argv
		return nil
	}
	return fault.Configf("line %d: cmd must be a string or a list of strings", node.Line)
}

var linkRE = regexp.MustCompile(`^(.+?)(?:\s+->\s+(.+?))?$`)

// ParseLinkSpec parses `src` or `src -> dst`.
func ParseLinkSpec(s string) (LinkSpec, error) {
	m := linkRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return LinkSpec{}, fault.Configf("invalid link %q", s)
	}
	spec := LinkSpec{Src: m[1], Dst: m[2]}
	if spec.Dst == "" {
		spec.Dst = spec.Src
	}
	return spec, nil
}

func (l *LinkSpec) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	spec, err := ParseLinkSpec(s)
	if err != nil {
		return fault.Wrap(fault.KindConfig, err, "line %d", node.Line)
	}
	*l = spec
	return nil
}

// stepFields is the union of both step shapes.
type stepFields struct {
	Description string         `yaml:"description"`
	Cmd         *Command       `yaml:"cmd"`
	Stdout      *StreamActions `yaml:"stdout"`
	Stderr      *StreamActions `yaml:"stderr"`
	Link        *LinkSpec      `yaml:"link"`
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fault.Configf("line %d: step must be a mapping", node.Line)
	}
	var f stepFields
	if err := node.Decode(&f); err != nil {
		return err
	}
	switch {
	case f.Cmd != nil && f.Link != nil:
		return fault.Configf("line %d: step has both cmd and link", node.Line)
	case f.Link != nil:
		if f.Stdout != nil || f.Stderr != nil {
			return fault.Configf("line %d: link steps have no output", node.Line)
		}
		*s = Step{Description: f.Description, Link: f.Link}
	case f.Cmd != nil:
		*s = Step{Description: f.Description, Command: f.Cmd, Stdout: f.Stdout, Stderr: f.Stderr}
	default:
		return fault.Configf("line %d: step needs cmd or link", node.Line)
	}
	return nil
}

type includeFields struct {
	Git  string `yaml:"git"`
	Rev  string `yaml:"rev"`
	Path string `yaml:"path"`
}

func (i *Include) UnmarshalYAML(node *yaml.Node) error {
	var f includeFields
	if err := node.Decode(&f); err != nil {
		return err
	}
	if f.Git == "" && f.Path == "" {
		return fault.Configf("line %d: include needs git or path", node.Line)
	}
	if f.Git == "" && f.Rev != "" {
		return fault.Configf("line %d: rev is only valid for git includes", node.Line)
	}
	*i = Include(f)
	return nil
}

// values is the root of calm.yml. Tools are kept as a node so their
// declaration order survives.
type values struct {
	Tools yaml.Node `yaml:"tools"`
}

func decodeTools(node *yaml.Node) ([]Tool, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fault.Configf("line %d: tools must be a mapping", node.Line)
	}
	tools := make([]Tool, 0, len(node.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return nil, fault.Configf("line %d: duplicate tool %q", key.Line, key.Value)
		}
		seen[key.Value] = true
		spec := &ToolSpec{}
		if err := val.Decode(spec); err != nil {
			return nil, fault.Wrap(fault.KindConfig, err, "tool %q", key.Value)
		}
		tools = append(tools, Tool{ID: key.Value, Spec: spec})
	}
	return tools, nil
}
