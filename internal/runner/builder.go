// Package runner spawns tool processes and drains their output line by line.
package runner

import (
	"context"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"calm/internal/fault"
	"calm/internal/progress"
	"calm/internal/trace"
)

type form uint8

const (
	formShell form = iota + 1
	formExec
)

// Builder describes a process before it is spawned.
type Builder struct {
	form form
	line string
	argv []string

	args       []string
	dir        string
	env        map[string]string
	searchPath []string

	sink progress.Sink
	tool string
	step string
}

// NewShell runs line through `sh -c`. Extra arguments are quoted and
// appended to the line.
func NewShell(line string) *Builder {
	return &Builder{form: formShell, line: line, env: map[string]string{}}
}

// NewExec runs argv directly. An empty argv is a configuration error.
func NewExec(argv []string) (*Builder, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fault.Configf("empty arguments for tool step")
	}
	return &Builder{form: formExec, argv: slices.Clone(argv), env: map[string]string{}}, nil
}

// Arg appends extra arguments, typically file paths.
func (b *Builder) Arg(args ...string) *Builder {
	b.args = append(b.args, args...)
	return b
}

// Dir sets the working directory of the child.
func (b *Builder) Dir(dir string) *Builder {
	b.dir = dir
	return b
}

// Env overrides one variable of the inherited environment.
func (b *Builder) Env(key, value string) *Builder {
	b.env[key] = value
	return b
}

// SearchPath prepends dirs to the PATH the executable is resolved against.
func (b *Builder) SearchPath(dirs ...string) *Builder {
	b.searchPath = append(b.searchPath, dirs...)
	return b
}

// Progress routes status lines to sink, tagged with tool and step.
func (b *Builder) Progress(sink progress.Sink, tool, step string) *Builder {
	b.sink = sink
	b.tool = tool
	b.step = step
	return b
}

// Name is the base name of the program the builder runs, used in messages.
func (b *Builder) Name() string {
	if b.form == formExec {
		return filepath.Base(b.argv[0])
	}
	first, _, _ := strings.Cut(strings.TrimSpace(b.line), " ")
	return filepath.Base(first)
}

// PathEnv returns the PATH value the child will see.
func (b *Builder) PathEnv() string {
	inherited, ok := b.env["PATH"]
	if !ok {
		inherited = os.Getenv("PATH")
	}
	parts := slices.Clone(b.searchPath)
	if inherited != "" {
		parts = append(parts, inherited)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

func (b *Builder) command() (path string, args []string, err error) {
	dirs := filepath.SplitList(b.PathEnv())
	switch b.form {
	case formShell:
		sh, err := LookPath("sh", dirs)
		if err != nil {
			return "", nil, err
		}
		line := b.line
		for _, a := range b.args {
			line += " " + ShellQuote(a)
		}
		return sh, []string{"sh", "-c", line}, nil
	case formExec:
		exe, err := LookPath(b.argv[0], dirs)
		if err != nil {
			return "", nil, err
		}
		args := append(slices.Clone(b.argv), b.args...)
		return exe, args, nil
	}
	return "", nil, fault.Configf("process has no command")
}

func (b *Builder) environ() []string {
	env := os.Environ()
	overrides := maps.Clone(b.env)
	overrides["PATH"] = b.PathEnv()

	out := make([]string, 0, len(env)+len(overrides))
	for _, kv := range env {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[k]; ok {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// Spawn starts the process with both output streams piped.
func (b *Builder) Spawn(ctx context.Context) (*Process, error) {
	_, span := trace.Start(ctx, trace.ScopeProcess, "process:"+b.Name())

	path, args, err := b.command()
	if err != nil {
		span.EndErr(err)
		return nil, err
	}
	cmd := &exec.Cmd{Path: path, Args: args, Dir: b.dir, Env: b.environ()}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		span.EndErr(err)
		return nil, fault.IO(err, "cannot pipe stdout of %s", b.Name())
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		span.EndErr(err)
		return nil, fault.IO(err, "cannot pipe stderr of %s", b.Name())
	}
	if err := cmd.Start(); err != nil {
		span.EndErr(err)
		return nil, fault.IO(err, "cannot spawn %s", b.Name())
	}
	span.Point("spawned", strings.Join(args, " "))

	sink := b.sink
	if sink == nil {
		sink = progress.Nop
	}
	return &Process{
		cmd:    cmd,
		name:   b.Name(),
		stdout: stdout,
		stderr: stderr,
		sink:   sink,
		tool:   b.tool,
		step:   b.step,
		span:   span,
	}, nil
}

// Run spawns and waits.
func (b *Builder) Run(ctx context.Context, h Handlers) (bool, error) {
	p, err := b.Spawn(ctx)
	if err != nil {
		return false, err
	}
	return p.Wait(h)
}

// ShellQuote wraps s in double quotes for `sh -c`.
func ShellQuote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\', '$', '`':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
