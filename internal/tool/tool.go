// Package tool binds one configured tool to its runtimes and runs its
// install, lint and format steps.
package tool

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"calm/internal/config"
	"calm/internal/diag"
	"calm/internal/formatting"
	"calm/internal/observ"
	"calm/internal/progress"
	"calm/internal/project"
	"calm/internal/rt"
	"calm/internal/source"
	"calm/internal/trace"
)

// EnvToolPath names the tool directory in the environment of every step.
const EnvToolPath = "CALM_TOOL_PATH"

// Env is the context a tool runs in.
type Env struct {
	// BaseDir is the project root; commands run there and link
	// destinations are relative to it.
	BaseDir string
	// CacheDir holds provisioned runtimes.
	CacheDir string
	// Registry resolves runtime types. Nil means rt.DefaultRegistry.
	Registry *rt.Registry
	// Identity overrides rt.Identity, mostly for tests.
	Identity func(typ, flavor string) string
	Sink     progress.Sink
	Timer    *observ.Timer
}

// Tool is a configured tool with its runtimes resolved.
type Tool struct {
	id       string
	spec     *config.ToolSpec
	env      Env
	runtimes []rt.Runtime
}

// New binds spec to its runtimes. Runtimes are ordered by type name so PATH
// and environment composition do not depend on map order.
func New(id string, spec *config.ToolSpec, env Env) (*Tool, error) {
	if env.Registry == nil {
		env.Registry = rt.DefaultRegistry()
	}
	if env.Sink == nil {
		env.Sink = progress.Nop
	}
	t := &Tool{id: id, spec: spec, env: env}
	for _, typ := range slices.Sorted(maps.Keys(spec.Runtimes)) {
		rc := spec.Runtimes[typ]
		rs := rt.Spec{Flavor: rc.Flavor}
		for name, version := range rc.Packages {
			rs.Packages = append(rs.Packages, rt.Package{Name: name, Version: version})
		}
		r, err := env.Registry.Create(typ, rt.Env{
			CacheDir: env.CacheDir,
			Identity: env.Identity,
			Sink:     env.Sink,
			Tool:     id,
		}, rs)
		if err != nil {
			return nil, err
		}
		t.runtimes = append(t.runtimes, r)
	}
	return t, nil
}

// ID is the key of the tool in calm.yml.
func (t *Tool) ID() string { return t.id }

// Spec returns the tool configuration.
func (t *Tool) Spec() *config.ToolSpec { return t.spec }

// Runtimes returns the bound runtimes in type order.
func (t *Tool) Runtimes() []rt.Runtime { return slices.Clone(t.runtimes) }

// Dir is the tool directory: the include directory, or the config dir.
func (t *Tool) Dir() string {
	if t.spec.Dir != "" {
		return t.spec.Dir
	}
	return filepath.Join(t.env.BaseDir, project.ConfigDirName)
}

// SearchPaths concatenates the executable directories of all runtimes.
func (t *Tool) SearchPaths() []string {
	var paths []string
	for _, r := range t.runtimes {
		paths = r.AddSearchPaths(paths)
	}
	return paths
}

// Environment is what runtimes contribute plus CALM_TOOL_PATH.
func (t *Tool) Environment() map[string]string {
	env := make(map[string]string)
	for _, r := range t.runtimes {
		r.UpdateEnv(func(k, v string) { env[k] = v })
	}
	env[EnvToolPath] = t.Dir()
	return env
}

// Update provisions runtimes, then runs install steps. The first failure
// aborts the rest.
func (t *Tool) Update(ctx context.Context) (err error) {
	ctx, done := t.begin(ctx, progress.StageUpdate)
	defer func() { done(err) }()

	for _, r := range t.runtimes {
		if err := r.Update(ctx); err != nil {
			return err
		}
	}
	for i := range t.spec.Install {
		if _, err := t.runStep(ctx, progress.StageUpdate, &t.spec.Install[i], stepOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// DoesLintFile reports whether any lint pattern matches path.
func (t *Tool) DoesLintFile(path string) bool {
	return t.spec.Lint != nil && t.spec.Lint.Patterns.MatchesPath(path)
}

// Lint runs the lint steps and feeds their findings into report. With an
// explicit selection only matching files are passed, relative to the base
// dir, and patterns see that relative form; when none match the tool is
// skipped. Step results are AND-ed, a hard
// error aborts at once.
func (t *Tool) Lint(ctx context.Context, report *diag.Report, files []string, explicit bool) (ok bool, err error) {
	lint := t.spec.Lint
	if lint == nil {
		return true, nil
	}
	var args []string
	if explicit {
		for _, f := range files {
			rel := source.DisplayPath(f, t.env.BaseDir)
			if lint.Patterns.MatchesPath(rel) {
				args = append(args, rel)
			}
		}
		if len(args) == 0 {
			return true, nil
		}
	}

	ctx, done := t.begin(ctx, progress.StageLint)
	defer func() { done(err) }()
	return t.runAll(ctx, progress.StageLint, lint.Run, stepOptions{report: report, args: args})
}

// Format runs the format steps over the scratch copies of matching files.
// The copies must have been registered with fr. A formatter exiting
// non-zero makes the result false rather than an error.
func (t *Tool) Format(ctx context.Context, fr *formatting.Result, files []string) (ok bool, err error) {
	format := t.spec.Format
	if format == nil {
		return true, nil
	}
	var args []string
	for _, f := range files {
		if !format.Patterns.MatchesPath(source.DisplayPath(f, t.env.BaseDir)) {
			continue
		}
		scratch, err := fr.ScratchFile(f)
		if err != nil {
			return false, err
		}
		args = append(args, scratch)
	}
	if len(args) == 0 {
		return true, nil
	}

	ctx, done := t.begin(ctx, progress.StageFormat)
	defer func() { done(err) }()
	return t.runAll(ctx, progress.StageFormat, format.Run, stepOptions{args: args, tolerant: true})
}

func (t *Tool) runAll(ctx context.Context, stage progress.Stage, steps []config.Step, opts stepOptions) (bool, error) {
	ok := true
	for i := range steps {
		stepOK, err := t.runStep(ctx, stage, &steps[i], opts)
		if err != nil {
			return false, err
		}
		ok = ok && stepOK
	}
	return ok, nil
}

// begin opens the tool span, the timer phase and the tool-level events.
func (t *Tool) begin(ctx context.Context, stage progress.Stage) (context.Context, func(error)) {
	ctx, span := trace.Start(ctx, trace.ScopeTool, string(stage)+":"+t.id)
	phase := t.env.Timer.Begin(string(stage) + " " + t.id)
	start := time.Now()
	t.env.Sink.OnEvent(progress.Event{Tool: t.id, Stage: stage, Status: progress.StatusStarted})

	return ctx, func(err error) {
		elapsed := time.Since(start)
		evt := progress.Event{Tool: t.id, Stage: stage, Status: progress.StatusDone, Elapsed: elapsed}
		note := ""
		if err != nil {
			evt.Status = progress.StatusError
			evt.Err = err
			note = "failed"
			span.EndErr(err)
		} else {
			span.End("")
		}
		t.env.Timer.End(phase, note)
		t.env.Sink.OnEvent(evt)
	}
}
