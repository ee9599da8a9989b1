package tool

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"calm/internal/config"
	"calm/internal/diag"
	"calm/internal/fault"
	"calm/internal/progress"
	"calm/internal/runner"
	"calm/internal/trace"
)

// stepOptions carries what lint and format pass to every step.
type stepOptions struct {
	// report receives diagnostics; nil disables output parsing.
	report *diag.Report
	// args are appended to every command, typically file paths.
	args []string
	// tolerant turns a non-zero exit into an unsuccessful step even when
	// no handler is installed.
	tolerant bool
}

// runStep executes one step. The bool is the step's own success; a hard
// failure is returned as an error.
func (t *Tool) runStep(ctx context.Context, stage progress.Stage, step *config.Step, opts stepOptions) (ok bool, err error) {
	title := step.Title()
	ctx, span := trace.Start(ctx, trace.ScopeStep, "step:"+title)
	start := time.Now()
	t.env.Sink.OnEvent(progress.Event{Tool: t.id, Step: title, Stage: stage, Status: progress.StatusStarted})

	defer func() {
		evt := progress.Event{Tool: t.id, Step: title, Stage: stage, Status: progress.StatusDone, Elapsed: time.Since(start)}
		switch {
		case err != nil:
			evt.Status = progress.StatusError
			evt.Err = err
			span.EndErr(err)
		case !ok:
			evt.Status = progress.StatusError
			span.End("unsuccessful")
		default:
			span.End("ok")
		}
		t.env.Sink.OnEvent(evt)
	}()

	env := t.Environment()
	if step.IsLink() {
		if err := t.link(step.Link, env); err != nil {
			return false, err
		}
		return true, nil
	}
	if step.Command == nil {
		return false, fault.Configf("empty tool step")
	}

	b, err := t.command(step.Command, env)
	if err != nil {
		return false, err
	}
	b.Arg(opts.args...).Progress(t.env.Sink, t.id, title)
	h := t.handlers(step, opts.report)
	if opts.tolerant {
		h.Expect = false
	}
	return b.Run(ctx, h)
}

func (t *Tool) command(c *config.Command, env map[string]string) (*runner.Builder, error) {
	var b *runner.Builder
	if c.IsExec() {
		var err error
		if b, err = runner.NewExec(c.Exec); err != nil {
			return nil, err
		}
	} else {
		b = runner.NewShell(c.Shell)
	}
	b.SearchPath(t.SearchPaths()...).Dir(t.env.BaseDir)
	for _, k := range slices.Sorted(maps.Keys(env)) {
		b.Env(k, env[k])
	}
	for _, r := range t.runtimes {
		r.ConfigureCommand(b)
	}
	return b, nil
}

// link creates the symlink a link step describes. Templates see the tool
// environment first and the process environment second. The source is
// relative to the tool dir, the destination to the base dir.
func (t *Tool) link(spec *config.LinkSpec, env map[string]string) error {
	lookup := runner.MapLookup(env)
	src := runner.ExpandVars(spec.Src, lookup)
	dst := runner.ExpandVars(spec.Dst, lookup)

	from := resolve(t.Dir(), src)
	to := resolve(t.env.BaseDir, dst)

	if err := os.Remove(to); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fault.IO(err, "cannot replace %s", to)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fault.IO(err, "cannot create directory for %s", to)
	}
	if err := os.Symlink(from, to); err != nil {
		return fault.IO(err, "cannot link %s to %s", to, from)
	}
	return nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
