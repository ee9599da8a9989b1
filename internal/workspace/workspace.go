// Package workspace runs update, lint and format across every tool of a
// project in declaration order.
package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"calm/internal/config"
	"calm/internal/diag"
	"calm/internal/fault"
	"calm/internal/formatting"
	"calm/internal/observ"
	"calm/internal/progress"
	"calm/internal/rt"
	"calm/internal/runner"
	"calm/internal/tool"
	"calm/internal/trace"
)

// Options configures a Context.
type Options struct {
	// Registry resolves runtime types. Nil means rt.DefaultRegistry.
	Registry *rt.Registry
	Sink     progress.Sink
	Timer    *observ.Timer
}

// Context is a loaded project plus what its tools need to run.
type Context struct {
	cfg  *config.Config
	opts Options
}

// New wraps an already loaded configuration.
func New(cfg *config.Config, opts Options) *Context {
	if opts.Registry == nil {
		opts.Registry = rt.DefaultRegistry()
	}
	if opts.Sink == nil {
		opts.Sink = progress.Nop
	}
	return &Context{cfg: cfg, opts: opts}
}

// Open discovers calm.yml above startDir.
func Open(startDir string, cfgOpts config.Options, opts Options) (*Context, error) {
	cfg, err := config.Discover(startDir, cfgOpts)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts), nil
}

// WithSink returns a copy of c that reports progress to sink.
func (c *Context) WithSink(sink progress.Sink) *Context {
	cp := *c
	if sink == nil {
		sink = progress.Nop
	}
	cp.opts.Sink = sink
	return &cp
}

// ToolIDs lists the tools in declaration order.
func (c *Context) ToolIDs() []string {
	ids := make([]string, 0, len(c.cfg.Tools))
	for _, t := range c.cfg.Tools {
		ids = append(ids, t.ID)
	}
	return ids
}

// Config returns the loaded configuration.
func (c *Context) Config() *config.Config { return c.cfg }

// BaseDir is the project root.
func (c *Context) BaseDir() string { return c.cfg.BaseDir }

// CacheDir holds runtimes and git includes.
func (c *Context) CacheDir() string { return c.cfg.CacheDir }

func (c *Context) logStep(text string) {
	c.opts.Sink.OnEvent(progress.Event{Step: text, Status: progress.StatusStarted})
}

// CreateTool binds the tool with the given id.
func (c *Context) CreateTool(id string) (*tool.Tool, error) {
	spec, ok := c.cfg.Tool(id)
	if !ok {
		return nil, fault.NotFoundf("could not find tool '%s'", id)
	}
	return tool.New(id, spec, tool.Env{
		BaseDir:  c.cfg.BaseDir,
		CacheDir: c.cfg.CacheDir,
		Registry: c.opts.Registry,
		Sink:     c.opts.Sink,
		Timer:    c.opts.Timer,
	})
}

func (c *Context) tools() ([]*tool.Tool, error) {
	out := make([]*tool.Tool, 0, len(c.cfg.Tools))
	for _, t := range c.cfg.Tools {
		tl, err := c.CreateTool(t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, tl)
	}
	return out, nil
}

// Update provisions every tool.
func (c *Context) Update(ctx context.Context) (err error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "update")
	defer func() { span.EndErr(err) }()

	tools, err := c.tools()
	if err != nil {
		return err
	}
	c.logStep("Updating toolchains")
	for _, t := range tools {
		if err := t.Update(ctx); err != nil {
			return err
		}
	}
	c.logStep("Updated")
	return nil
}

// Lint runs every linter and returns the sorted report. With explicit set,
// files is the selection; otherwise tools lint what they choose. When a tool
// fails hard the report collected up to that point is returned with the error.
func (c *Context) Lint(ctx context.Context, files []string, explicit bool) (_ *diag.Report, err error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "lint")
	defer func() { span.EndErr(err) }()

	tools, err := c.tools()
	if err != nil {
		return nil, err
	}
	report := diag.NewReport(c.cfg.BaseDir)
	defer func() {
		report.Sort()
		span.WithExtra("diagnostics", strconv.Itoa(report.Len()))
	}()
	for _, t := range tools {
		if _, err := t.Lint(ctx, report, files, explicit); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Format copies files to scratch files and runs every formatter on them.
// A formatter that reports failure fails the whole run. The caller owns the
// result and must Close it.
func (c *Context) Format(ctx context.Context, files []string) (_ *formatting.Result, err error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "format")
	defer func() { span.EndErr(err) }()

	tools, err := c.tools()
	if err != nil {
		return nil, err
	}
	fr := formatting.NewResult(c.cfg.BaseDir)
	defer func() {
		if err != nil {
			fr.Close()
		}
	}()
	for _, f := range files {
		if err := fr.Register(f); err != nil {
			return nil, err
		}
	}
	for _, t := range tools {
		ok, err := t.Format(ctx, fr, files)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fault.Executionf("formatter '%s' failed", t.ID())
		}
	}
	return fr, nil
}

// IsLintableFile reports whether any tool lints path.
func (c *Context) IsLintableFile(path string) (bool, error) {
	tools, err := c.tools()
	if err != nil {
		return false, err
	}
	for _, t := range tools {
		if t.DoesLintFile(path) {
			return true, nil
		}
	}
	return false, nil
}

// SearchPaths concatenates the runtime directories of all tools.
func (c *Context) SearchPaths() ([]string, error) {
	tools, err := c.tools()
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, t := range tools {
		dirs = append(dirs, t.SearchPaths()...)
	}
	return dirs, nil
}

// FindCommand resolves name in the runtime directories only.
func (c *Context) FindCommand(name string) (string, bool, error) {
	dirs, err := c.SearchPaths()
	if err != nil {
		return "", false, err
	}
	path, err := runner.LookPath(name, dirs)
	if err != nil {
		return "", false, nil
	}
	return path, true, nil
}

// ClearCache removes the project cache directory.
func (c *Context) ClearCache() error {
	c.logStep("Clearing cache")
	if err := os.RemoveAll(c.cfg.CacheDir); err != nil {
		return fault.IO(err, "cannot remove %s", c.cfg.CacheDir)
	}
	return nil
}

// PullDependencies clones missing git includes and pulls the ones that
// follow a branch head. The configuration is reloaded afterwards so new
// calmtool.yml files take effect.
func (c *Context) PullDependencies(ctx context.Context) error {
	changed := false
	for _, t := range c.cfg.Tools {
		inc := t.Spec.Include
		if inc == nil || !inc.IsGit() {
			continue
		}
		c.logStep("Pulling dependencies for '" + t.ID + "'")
		if err := c.pull(ctx, t.ID, inc); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return nil
	}
	cfg, err := config.Load(c.cfg.Filename, config.Options{CacheDir: c.cfg.CacheDir})
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *Context) pull(ctx context.Context, id string, inc *config.Include) error {
	dir := c.cfg.CheckoutDir(inc)
	var argv []string
	_, statErr := os.Stat(filepath.Join(dir, ".git"))
	switch {
	case errors.Is(statErr, os.ErrNotExist):
		argv = []string{"git", "clone", inc.Git, "."}
		if inc.Rev != "" {
			argv = append(argv, "-b", inc.Rev)
		}
	case statErr != nil:
		return fault.IO(statErr, "cannot inspect %s", dir)
	case inc.Rev == "":
		argv = []string{"git", "pull"}
	default:
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fault.IO(err, "cannot create %s", dir)
	}
	b, err := runner.NewExec(argv)
	if err != nil {
		return err
	}
	_, err = b.Dir(dir).Progress(c.opts.Sink, id, "git "+argv[1]).Run(ctx, runner.DefaultHandlers())
	return err
}
