package rt

import (
	"context"
	"os"
	"path/filepath"

	"calm/internal/fault"
	"calm/internal/runner"
)

// TypeJavaScript is the runtime type name used in configuration.
const TypeJavaScript = "javascript"

const scratchPackageJSON = `{
  "name": "calm-js-scratchpad",
  "version": "0.0.1",
  "description": "",
  "author": "",
  "license": "ISC",
  "dependencies": {
    "yarn": "*"
  }
}
`

// JavaScript is a node_modules tree managed with yarn.
type JavaScript struct {
	base
}

// NewJavaScript is the Constructor for the javascript runtime.
func NewJavaScript(env Env, spec Spec) Runtime {
	return &JavaScript{base: newBase(env, spec, TypeJavaScript, "")}
}

func (j *JavaScript) bin() string { return filepath.Join(j.Path(), "node_modules", ".bin") }

func (j *JavaScript) AddSearchPaths(paths []string) []string {
	return append(paths, j.bin())
}

func (j *JavaScript) UpdateEnv(set func(key, value string)) {
	set("NODE_PATH", filepath.Join(j.Path(), "node_modules"))
	set("CALM_JAVASCRIPT_BIN", j.bin())
	set("CALM_JAVASCRIPT_BASE", j.Path())
	set("CALM_JAVASCRIPT_PACKAGE_JSON", filepath.Join(j.Path(), "package.json"))
}

func (j *JavaScript) ConfigureCommand(b *runner.Builder) {
	b.SearchPath(j.bin())
	b.Env("NODE_PATH", filepath.Join(j.Path(), "node_modules"))
}

func (j *JavaScript) Update(ctx context.Context) error {
	path := j.Path()
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fault.IO(err, "cannot create javascript runtime in %s", path)
	}

	pkgJSON := filepath.Join(path, "package.json")
	if _, err := os.Stat(pkgJSON); err != nil {
		j.env.logStep(j.stage(), "Bootstrapping environment")
		if err := os.WriteFile(pkgJSON, []byte(scratchPackageJSON), 0o644); err != nil {
			return fault.IO(err, "cannot write %s", pkgJSON)
		}
	}

	if _, err := os.Stat(filepath.Join(j.bin(), "yarn")); err != nil {
		j.env.logStep(j.stage(), "Installing yarn")
		npm, _ := runner.NewExec([]string{"npm", "install", "-d"})
		j.ConfigureCommand(npm)
		if err := j.run(ctx, npm.Dir(path), "Installing yarn"); err != nil {
			return err
		}
	}

	want := newStamp(j.typ, j.spec)
	if upToDate(path, want) {
		return nil
	}
	if pkgs := want.Packages; len(pkgs) > 0 {
		j.env.logStep(j.stage(), "Installing javascript packages")
		yarn, _ := runner.NewExec([]string{"yarn", "add"})
		for _, pkg := range pkgs {
			yarn.Arg(pkg.Name + "@" + pkg.Version)
		}
		j.ConfigureCommand(yarn)
		if err := j.run(ctx, yarn.Dir(path), "Installing javascript packages"); err != nil {
			return err
		}
	}
	if err := writeStamp(path, want); err != nil {
		return fault.IO(err, "cannot record javascript runtime state")
	}
	return nil
}
