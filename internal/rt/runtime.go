// Package rt provisions the per-language environments tools run in.
package rt

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"calm/internal/fault"
	"calm/internal/progress"
	"calm/internal/project"
	"calm/internal/runner"
)

// Package is one requirement installed into a runtime.
type Package struct {
	Name    string
	Version string
}

// Spec is the configuration of one runtime for one tool.
type Spec struct {
	Flavor   string
	Packages []Package
}

// SortedPackages returns packages ordered by name.
func (s Spec) SortedPackages() []Package {
	out := slices.Clone(s.Packages)
	slices.SortFunc(out, func(a, b Package) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Env is what a runtime needs from the surrounding context.
type Env struct {
	// CacheDir is the per-project cache; runtimes live in CacheDir/rt/<id>.
	CacheDir string
	// Identity derives the runtime id. Nil means Identity.
	Identity func(typ, flavor string) string
	Sink     progress.Sink
	// Tool tags progress events.
	Tool string
}

func (e Env) identity(typ, flavor string) string {
	if e.Identity != nil {
		return e.Identity(typ, flavor)
	}
	return Identity(typ, flavor)
}

func (e Env) logStep(stage progress.Stage, text string) {
	if e.Sink == nil {
		return
	}
	e.Sink.OnEvent(progress.Event{Tool: e.Tool, Step: text, Stage: stage, Status: progress.StatusStarted})
}

// Identity is the hex SHA-256 of `type \x00 flavor`. Tools sharing type and
// flavor share the environment on disk.
func Identity(typ, flavor string) string {
	return project.Combine(typ, flavor).String()
}

// Runtime is a provisioned language environment.
type Runtime interface {
	Type() string
	ID() string
	// Path is where the runtime lives, whether or not it exists yet.
	Path() string
	// AddSearchPaths appends the directories holding the runtime's executables.
	AddSearchPaths(paths []string) []string
	// UpdateEnv reports the variables steps of a tool using this runtime see.
	UpdateEnv(set func(key, value string))
	// ConfigureCommand adjusts a step's process before it is spawned.
	ConfigureCommand(b *runner.Builder)
	// Update creates the environment if missing and installs packages.
	Update(ctx context.Context) error
}

// Constructor builds a runtime from its configuration.
type Constructor func(env Env, spec Spec) Runtime

// Registry maps runtime type names to constructors.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry knows the python and javascript runtimes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypePython, NewPython)
	r.Register(TypeJavaScript, NewJavaScript)
	return r
}

// Register adds or replaces the constructor for typ.
func (r *Registry) Register(typ string, c Constructor) {
	r.ctors[typ] = c
}

// Types lists registered type names in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Create builds the runtime for typ.
func (r *Registry) Create(typ string, env Env, spec Spec) (Runtime, error) {
	c, ok := r.ctors[typ]
	if !ok {
		return nil, fault.NotFoundf("could not find runtime %q", typ)
	}
	return c(env, spec), nil
}

// base carries the fields every runtime shares.
type base struct {
	env  Env
	spec Spec
	typ  string
	id   string
}

func newBase(env Env, spec Spec, typ, defaultFlavor string) base {
	flavor := spec.Flavor
	if flavor == "" {
		flavor = defaultFlavor
	}
	return base{env: env, spec: spec, typ: typ, id: env.identity(typ, flavor)}
}

func (b *base) Type() string { return b.typ }

func (b *base) ID() string { return b.id }

func (b *base) Path() string {
	return filepath.Join(b.env.CacheDir, "rt", b.id)
}

func (b *base) stage() progress.Stage { return progress.StageUpdate }

// run executes a provisioning command and requires success.
func (b *base) run(ctx context.Context, cmd *runner.Builder, step string) error {
	cmd.Progress(b.env.Sink, b.env.Tool, step)
	_, err := cmd.Run(ctx, runner.DefaultHandlers())
	return err
}
