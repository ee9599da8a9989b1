package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"calm/internal/fault"
	"calm/internal/project"
)

// ToolConfigName is the file an included tool directory provides.
const ToolConfigName = "calmtool.yml"

// Config is a loaded project configuration.
type Config struct {
	// Filename is the absolute path of calm.yml.
	Filename string
	// ConfigDir is the .calm directory.
	ConfigDir string
	// BaseDir is the project root, the parent of ConfigDir.
	BaseDir string
	// CacheDir holds runtimes and git includes for this project.
	CacheDir string
	Tools    []Tool
}

// Options tunes Load.
type Options struct {
	// Home is the calm home directory; defaults to Home().
	Home string
	// CacheDir overrides the derived per-project cache directory.
	CacheDir string
}

// Home returns $CALM_HOME or ~/.calm.
func Home() (string, error) {
	if h := os.Getenv("CALM_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fault.IO(err, "could not find home folder")
	}
	return filepath.Join(home, ".calm"), nil
}

// CacheDirFor derives the per-project cache directory from the config path.
func CacheDirFor(home, filename string) string {
	return filepath.Join(home, "env-cache", project.HashString(filename).String())
}

// Discover finds calm.yml above startDir and loads it.
func Discover(startDir string, opts Options) (*Config, error) {
	path, ok, err := project.FindConfig(startDir)
	if err != nil {
		return nil, fault.IO(err, "cannot search for %s", project.ConfigFileName)
	}
	if !ok {
		return nil, fault.NotFoundf("could not find %s/%s", project.ConfigDirName, project.ConfigFileName)
	}
	return Load(path, opts)
}

// Load parses calm.yml at filename and merges tool includes that are
// present on disk. Missing git checkouts are left for PullDependencies.
func Load(filename string, opts Options) (*Config, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fault.IO(err, "cannot resolve %s", filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fault.IO(err, "could not open %s", filename)
	}

	var v values
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fault.Wrap(fault.KindConfig, err, "failed to parse %s", filename)
	}
	tools, err := decodeTools(&v.Tools)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfig, err, "failed to parse %s", filename)
	}

	cfg := &Config{
		Filename:  filename,
		ConfigDir: filepath.Dir(filename),
		BaseDir:   filepath.Dir(filepath.Dir(filename)),
		CacheDir:  opts.CacheDir,
		Tools:     tools,
	}
	if cfg.CacheDir == "" {
		home := opts.Home
		if home == "" {
			if home, err = Home(); err != nil {
				return nil, err
			}
		}
		cfg.CacheDir = CacheDirFor(home, filename)
	}

	for _, t := range cfg.Tools {
		t.Spec.Dir = cfg.ConfigDir
		if t.Spec.Include == nil {
			continue
		}
		t.Spec.Dir = cfg.IncludeDir(t.Spec.Include)
		if err := mergeToolConfig(t.Spec); err != nil {
			return nil, fault.Wrap(fault.KindConfig, err, "tool %q", t.ID)
		}
	}
	return cfg, nil
}

// Tool looks a tool up by id.
func (c *Config) Tool(id string) (*ToolSpec, bool) {
	for _, t := range c.Tools {
		if t.ID == id {
			return t.Spec, true
		}
	}
	return nil, false
}

// CheckoutDir is where a git include is cloned.
func (c *Config) CheckoutDir(inc *Include) string {
	return filepath.Join(c.CacheDir, "tools", inc.Checksum())
}

// IncludeDir is the directory holding the included tool's calmtool.yml.
func (c *Config) IncludeDir(inc *Include) string {
	if !inc.IsGit() {
		if filepath.IsAbs(inc.Path) {
			return inc.Path
		}
		return filepath.Join(c.ConfigDir, inc.Path)
	}
	dir := c.CheckoutDir(inc)
	if prefix := strings.TrimPrefix(inc.Path, "/"); prefix != "" {
		dir = filepath.Join(dir, prefix)
	}
	return dir
}

// Checksum identifies the checkout of a git include.
func (i *Include) Checksum() string {
	if i.IsGit() {
		return project.Combine("git", i.Git, i.Rev).String()
	}
	return project.Combine("path", i.Path).String()
}

type standalone struct {
	Tool ToolSpec `yaml:"tool"`
}

// mergeToolConfig folds calmtool.yml from spec.Dir into spec. Settings in
// the included file win; install steps are appended.
func mergeToolConfig(spec *ToolSpec) error {
	path := filepath.Join(spec.Dir, ToolConfigName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fault.IO(err, "cannot read %s", path)
	}
	var inc standalone
	if err := yaml.Unmarshal(data, &inc); err != nil {
		return fault.Wrap(fault.KindConfig, err, "failed to parse %s", path)
	}

	if inc.Tool.Description != "" {
		spec.Description = inc.Tool.Description
	}
	for typ, rc := range inc.Tool.Runtimes {
		if spec.Runtimes == nil {
			spec.Runtimes = make(map[string]RuntimeConfig)
		}
		spec.Runtimes[typ] = rc
	}
	spec.Install = append(spec.Install, inc.Tool.Install...)
	if inc.Tool.Lint != nil {
		spec.Lint = inc.Tool.Lint
	}
	if inc.Tool.Format != nil {
		spec.Format = inc.Tool.Format
	}
	return nil
}
