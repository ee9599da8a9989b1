package rt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"calm/internal/fault"
	"calm/internal/runner"
)

// TypePython is the runtime type name used in configuration.
const TypePython = "python"

const defaultPythonFlavor = "python3"

// Python is a virtualenv with pip-installed packages.
type Python struct {
	base
}

// NewPython is the Constructor for the python runtime.
func NewPython(env Env, spec Spec) Runtime {
	return &Python{base: newBase(env, spec, TypePython, defaultPythonFlavor)}
}

func (p *Python) bin() string { return filepath.Join(p.Path(), "bin") }

func (p *Python) AddSearchPaths(paths []string) []string {
	return append(paths, p.bin())
}

// envPrefix is CALM_<FLAVOR> with anything outside [A-Z0-9_] replaced.
func (p *Python) envPrefix() string {
	name := p.spec.Flavor
	if name == "" {
		name = "python"
	}
	return "CALM_" + strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, name)
}

func (p *Python) UpdateEnv(set func(key, value string)) {
	prefix := p.envPrefix()
	set(prefix+"_VENV", p.Path())
	set(prefix+"_BIN", p.bin())
	set(prefix+"_LIB", filepath.Join(p.Path(), "lib"))
}

func (p *Python) ConfigureCommand(b *runner.Builder) {
	b.Env("VIRTUAL_ENV", p.Path())
	b.Env("PYTHONNOUSERSITE", "1")
}

func (p *Python) Update(ctx context.Context) error {
	path := p.Path()
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fault.IO(err, "cannot create python runtime in %s", path)
	}

	if _, err := os.Stat(filepath.Join(p.bin(), "python")); err != nil {
		flavor := p.spec.Flavor
		if flavor == "" {
			flavor = "default python"
		}
		step := "Bootstrapping virtualenv (" + flavor + ")"
		p.env.logStep(p.stage(), step)
		cmd, _ := runner.NewExec([]string{"virtualenv", path})
		if p.spec.Flavor != "" {
			cmd.Arg("-p", p.spec.Flavor)
		}
		if err := p.run(ctx, cmd, step); err != nil {
			return err
		}
	}

	want := newStamp(p.typ, p.spec)
	if upToDate(path, want) {
		return nil
	}

	p.env.logStep(p.stage(), "Updating pip")
	pip, _ := runner.NewExec([]string{"bin/pip", "install", "--upgrade", "pip"})
	if err := p.run(ctx, pip.Dir(path), "Updating pip"); err != nil {
		return err
	}

	if pkgs := want.Packages; len(pkgs) > 0 {
		p.env.logStep(p.stage(), "Installing python packages")
		install, _ := runner.NewExec([]string{"bin/pip", "install"})
		for _, pkg := range pkgs {
			install.Arg(pkg.Name + "==" + pkg.Version)
		}
		p.ConfigureCommand(install)
		if err := p.run(ctx, install.Dir(path), "Installing python packages"); err != nil {
			return err
		}
	}
	if err := writeStamp(path, want); err != nil {
		return fault.IO(err, "cannot record python runtime state")
	}
	return nil
}
