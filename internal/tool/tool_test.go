package tool

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calm/internal/config"
	"calm/internal/diag"
	"calm/internal/fault"
	"calm/internal/formatting"
	"calm/internal/pattern"
	"calm/internal/progress"
	"calm/internal/rt"
	"calm/internal/runner"
)

const flake8Pattern = `/^(?P<filename>[^:]+):(?P<line>\d+):(?P<column>\d+): (?P<code>\S+) (?P<message>.*)$/`

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) OnEvent(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Status == progress.StatusStarted && e.Step != "" {
			out = append(out, e.Step)
		}
	}
	return out
}

func shellStep(line string, stdout *config.StreamActions) config.Step {
	return config.Step{Command: &config.Command{Shell: line}, Stdout: stdout}
}

func linesAction(t *testing.T) *config.StreamActions {
	t.Helper()
	p, err := pattern.Parse(flake8Pattern)
	require.NoError(t, err)
	return &config.StreamActions{ParseLines: &config.ParseLines{Pattern: p, ReportMatch: config.ReportLintResult}}
}

func newProject(t *testing.T, files ...string) string {
	t.Helper()
	base := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(base, f), []byte("x = 1\n"), 0o644))
	}
	return base
}

func newTool(t *testing.T, base string, spec *config.ToolSpec, sink progress.Sink) *Tool {
	t.Helper()
	if spec.Dir == "" {
		spec.Dir = base
	}
	tl, err := New("flake8", spec, Env{BaseDir: base, CacheDir: t.TempDir(), Sink: sink})
	require.NoError(t, err)
	return tl
}

func canonical(t *testing.T, p string) string {
	t.Helper()
	out, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return out
}

func TestLintParsesLinesIntoReport(t *testing.T) {
	base := newProject(t, "a.py")
	rec := &recorder{}
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.py")},
		Run:      []config.Step{shellStep(`printf 'a.py:3:5: E501 line too long\nnot a diagnostic\n'; exit 1`, linesAction(t))},
	}}
	tl := newTool(t, base, spec, rec)

	report := diag.NewReport(base)
	ok, err := tl.Lint(context.Background(), report, nil, false)
	require.NoError(t, err)
	assert.False(t, ok, "non-zero exit is an unsuccessful step, not an error")

	items := report.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.Diagnostic{
		Filename: canonical(t, filepath.Join(base, "a.py")),
		Line:     3,
		Column:   5,
		Code:     "flake8:E501",
		Message:  "line too long",
		Level:    diag.LevelError,
	}, items[0])
	assert.Equal(t, []string{"Running printf"}, rec.started())
}

func TestLintEmptyFilenameIsGeneral(t *testing.T) {
	base := newProject(t)
	p := pattern.MustParse(`/^(?P<filename>)general: (?P<message>.*)$/`)
	actions := &config.StreamActions{ParseLines: &config.ParseLines{Pattern: p, ReportMatch: config.ReportLintResult}}
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*")},
		Run:      []config.Step{shellStep(`echo 'general: missing config'`, actions)},
	}}
	tl := newTool(t, base, spec, nil)

	status, err := tl.linesHandler(actions.ParseLines, diag.NewReport(base))("general: missing config")
	require.NoError(t, err)
	assert.Equal(t, statusGeneralIssue, status)

	report := diag.NewReport(base)
	ok, err := tl.Lint(context.Background(), report, nil, false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Equal(t, 1, report.Len())
	assert.True(t, report.Items()[0].IsGeneral())
}

func TestLintParsesJSON(t *testing.T) {
	base := newProject(t, "a.js")
	actions := &config.StreamActions{ParseLintJSON: true}
	script := `printf '%s\n' '{"filename":"a.js","line":2,"code":"no-var","level":"warning"}' '' '{"message":"general"}'`
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.js")},
		Run:      []config.Step{shellStep(script, actions)},
	}}
	tl := newTool(t, base, spec, nil)

	report := diag.NewReport(base)
	ok, err := tl.Lint(context.Background(), report, nil, false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Equal(t, 2, report.Len())
	errs, warns := report.Counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, warns)
	items := report.Items()
	assert.Equal(t, "flake8:no-var", items[0].Code)
	assert.Equal(t, "general", items[1].Message)
}

func TestLintMalformedJSONIsHardError(t *testing.T) {
	base := newProject(t)
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*")},
		Run: []config.Step{
			shellStep(`echo '{oops'`, &config.StreamActions{ParseLintJSON: true}),
			shellStep(`touch second-step-ran`, nil),
		},
	}}
	tl := newTool(t, base, spec, nil)

	_, err := tl.Lint(context.Background(), diag.NewReport(base), nil, false)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindData), "%v", err)
	assert.NoFileExists(t, filepath.Join(base, "second-step-ran"))
}

func TestLintExplicitSelectionWithoutMatchesSkips(t *testing.T) {
	base := newProject(t, "README.md")
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.py")},
		Run:      []config.Step{shellStep(`touch spawned`, linesAction(t))},
	}}
	tl := newTool(t, base, spec, nil)

	report := diag.NewReport(base)
	ok, err := tl.Lint(context.Background(), report, []string{filepath.Join(base, "README.md")}, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, report.Len())
	assert.NoFileExists(t, filepath.Join(base, "spawned"))
}

func TestLintPassesMatchingFilesRelative(t *testing.T) {
	base := newProject(t, "a.py", "b.txt")
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.py")},
		Run: []config.Step{{Command: &config.Command{Exec: []string{
			"sh", "-c", `printf '%s:1:1: X1 seen\n' "$@"`, "sh",
		}}, Stdout: linesAction(t)}},
	}}
	tl := newTool(t, base, spec, nil)

	report := diag.NewReport(base)
	files := []string{filepath.Join(base, "a.py"), filepath.Join(base, "b.txt")}
	ok, err := tl.Lint(context.Background(), report, files, true)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Equal(t, 1, report.Len())
	assert.Equal(t, canonical(t, filepath.Join(base, "a.py")), report.Items()[0].Filename)
}

func TestLintAggregatesAcrossSteps(t *testing.T) {
	base := newProject(t)
	spec := &config.ToolSpec{Lint: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*")},
		Run: []config.Step{
			shellStep(`exit 3`, linesAction(t)),
			shellStep(`touch second-step-ran`, linesAction(t)),
		},
	}}
	tl := newTool(t, base, spec, nil)

	ok, err := tl.Lint(context.Background(), diag.NewReport(base), nil, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(base, "second-step-ran"))
}

func TestLintWithoutSpecSucceeds(t *testing.T) {
	base := newProject(t)
	tl := newTool(t, base, &config.ToolSpec{}, nil)
	ok, err := tl.Lint(context.Background(), diag.NewReport(base), []string{"x.py"}, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, tl.DoesLintFile("x.py"))
}

func TestDoesLintFile(t *testing.T) {
	spec := &config.ToolSpec{Lint: &config.ActionSpec{Patterns: pattern.Set{
		pattern.MustParse("*.py"),
		pattern.MustParse(`/^docs/.*\.rst$/`),
	}}}
	tl := newTool(t, t.TempDir(), spec, nil)
	assert.True(t, tl.DoesLintFile("src/pkg/mod.py"))
	assert.True(t, tl.DoesLintFile("docs/index.rst"))
	assert.False(t, tl.DoesLintFile("src/index.rst"))
}

func TestUpdateLinksAndFailsFast(t *testing.T) {
	base := newProject(t)
	toolDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(toolDir, "helper.sh"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "bin", "helper"), []byte("stale"), 0o644))

	rec := &recorder{}
	spec := &config.ToolSpec{
		Dir: toolDir,
		Install: []config.Step{
			{Link: &config.LinkSpec{Src: "helper.sh", Dst: "bin/helper"}},
			{Link: &config.LinkSpec{Src: "$CALM_TOOL_PATH/helper.sh", Dst: "nested/dir/helper"}},
			shellStep(`exit 2`, nil),
			shellStep(`touch never`, nil),
		},
	}
	tl := newTool(t, base, spec, rec)

	err := tl.Update(context.Background())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindExecution), "%v", err)
	assert.NoFileExists(t, filepath.Join(base, "never"))

	target, err := os.Readlink(filepath.Join(base, "bin", "helper"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(toolDir, "helper.sh"), target)
	target, err = os.Readlink(filepath.Join(base, "nested", "dir", "helper"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(toolDir, "helper.sh"), target)

	assert.Equal(t, []string{"Linking helper.sh", "Linking $CALM_TOOL_PATH/helper.sh", "Running exit"}, rec.started())
}

func TestFormatRunsOnScratchCopies(t *testing.T) {
	base := newProject(t, "a.py", "b.txt")
	spec := &config.ToolSpec{Format: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.py")},
		Run: []config.Step{{Command: &config.Command{Exec: []string{
			"sh", "-c", `for f in "$@"; do printf 'x = 2\n' > "$f"; done`, "sh",
		}}}},
	}}
	tl := newTool(t, base, spec, nil)

	fr := formatting.NewResult(base)
	defer fr.Close()
	files := []string{filepath.Join(base, "a.py"), filepath.Join(base, "b.txt")}
	for _, f := range files {
		require.NoError(t, fr.Register(f))
	}

	ok, err := tl.Format(context.Background(), fr, files)
	require.NoError(t, err)
	assert.True(t, ok)

	changed, err := fr.Changed()
	require.NoError(t, err)
	assert.Equal(t, []string{files[0]}, changed)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data), "original untouched until Apply")
}

func TestFormatWithoutMatchesSkips(t *testing.T) {
	base := newProject(t, "b.txt")
	spec := &config.ToolSpec{Format: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.py")},
		Run:      []config.Step{shellStep(`touch spawned`, nil)},
	}}
	tl := newTool(t, base, spec, nil)
	ok, err := tl.Format(context.Background(), formatting.NewResult(base), []string{filepath.Join(base, "b.txt")})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoFileExists(t, filepath.Join(base, "spawned"))
}

func TestFormatFailureIsAggregated(t *testing.T) {
	base := newProject(t, "a.py")
	spec := &config.ToolSpec{Format: &config.ActionSpec{
		Patterns: pattern.Set{pattern.MustParse("*.py")},
		Run: []config.Step{
			shellStep(`exit 1`, nil),
			shellStep(`touch second-step-ran`, nil),
		},
	}}
	tl := newTool(t, base, spec, nil)

	fr := formatting.NewResult(base)
	defer fr.Close()
	a := filepath.Join(base, "a.py")
	require.NoError(t, fr.Register(a))
	ok, err := tl.Format(context.Background(), fr, []string{a})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(base, "second-step-ran"))
}

type fakeRuntime struct {
	typ     string
	bin     string
	updated *[]string
}

func (f *fakeRuntime) Type() string { return f.typ }
func (f *fakeRuntime) ID() string   { return "id-" + f.typ }
func (f *fakeRuntime) Path() string { return filepath.Dir(f.bin) }
func (f *fakeRuntime) AddSearchPaths(paths []string) []string {
	return append(paths, f.bin)
}
func (f *fakeRuntime) UpdateEnv(set func(k, v string)) {
	set("FAKE_"+f.typ, f.bin)
}
func (f *fakeRuntime) ConfigureCommand(b *runner.Builder) { b.Env("CONFIGURED_BY", f.typ) }
func (f *fakeRuntime) Update(context.Context) error {
	*f.updated = append(*f.updated, f.typ)
	return nil
}

func TestRuntimesComposeInTypeOrder(t *testing.T) {
	base := newProject(t)
	var updated []string
	reg := rt.NewRegistry()
	for _, typ := range []string{"zeta", "alpha"} {
		reg.Register(typ, func(env rt.Env, spec rt.Spec) rt.Runtime {
			return &fakeRuntime{typ: typ, bin: filepath.Join(env.CacheDir, typ, "bin"), updated: &updated}
		})
	}
	spec := &config.ToolSpec{
		Dir:      base,
		Runtimes: map[string]config.RuntimeConfig{"zeta": {}, "alpha": {}},
		Install: []config.Step{shellStep(
			`printf '%s|%s|%s\n' "$FAKE_alpha" "$CALM_TOOL_PATH" "$CONFIGURED_BY" > env.out`, nil)},
	}
	cache := t.TempDir()
	tl, err := New("multi", spec, Env{BaseDir: base, CacheDir: cache, Registry: reg})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(cache, "alpha", "bin"), filepath.Join(cache, "zeta", "bin")}, tl.SearchPaths())
	env := tl.Environment()
	assert.Equal(t, base, env[EnvToolPath])
	assert.Contains(t, env, "FAKE_zeta")

	require.NoError(t, tl.Update(context.Background()))
	assert.Equal(t, []string{"alpha", "zeta"}, updated)
	data, err := os.ReadFile(filepath.Join(base, "env.out"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "alpha", "bin")+"|"+base+"|zeta\n", string(data))
}

func TestUnknownRuntime(t *testing.T) {
	spec := &config.ToolSpec{Runtimes: map[string]config.RuntimeConfig{"cobol": {}}}
	_, err := New("x", spec, Env{BaseDir: t.TempDir(), CacheDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindNotFound), "%v", err)
}

func TestToolEventsReportFailure(t *testing.T) {
	base := newProject(t)
	rec := &recorder{}
	spec := &config.ToolSpec{Install: []config.Step{shellStep(`exit 1`, nil)}}
	tl := newTool(t, base, spec, rec)
	require.Error(t, tl.Update(context.Background()))

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, "", last.Step)
	assert.Equal(t, progress.StatusError, last.Status)
	assert.Equal(t, progress.StageUpdate, last.Stage)
	assert.Error(t, last.Err)
}
