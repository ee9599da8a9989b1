// Package hooks installs and removes the calm line in git hook scripts.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"calm/internal/fault"
	"calm/internal/project"
)

// PreCommit is the only hook calm manages.
const PreCommit = "pre-commit"

var hookRE = regexp.MustCompile(`(?m)^calm\s+hook\s+--exec-([\w-]+)\s+\|\|\s+exit\s+1[ \t]*\r?\n?`)

// Manager edits the hook scripts of one repository.
type Manager struct {
	gitDir string
}

// Status reports which hooks carry the calm line.
type Status struct {
	PreCommitInstalled bool
}

// NewManager locates the git directory containing dir.
func NewManager(ctx context.Context, dir string) (*Manager, error) {
	gitDir, err := project.GitDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	return &Manager{gitDir: gitDir}, nil
}

// ForGitDir uses gitDir directly.
func ForGitDir(gitDir string) *Manager { return &Manager{gitDir: gitDir} }

// HookFile is the script path for hook.
func (m *Manager) HookFile(hook string) string {
	return filepath.Join(m.gitDir, "hooks", hook)
}

// Line is what calm appends to a hook script.
func Line(hook string) string {
	return fmt.Sprintf("calm hook --exec-%s || exit 1\n", hook)
}

func (m *Manager) read(hook string) (string, bool, error) {
	data, err := os.ReadFile(m.HookFile(hook))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fault.IO(err, "cannot read %s hook", hook)
	}
	return string(data), true, nil
}

// Installed reports whether hook runs calm.
func (m *Manager) Installed(hook string) (bool, error) {
	contents, _, err := m.read(hook)
	if err != nil {
		return false, err
	}
	for _, sub := range hookRE.FindAllStringSubmatch(contents, -1) {
		if sub[1] == hook {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) add(hook string) error {
	contents, ok, err := m.read(hook)
	if err != nil {
		return err
	}
	if !ok {
		contents = "#!/bin/sh\n"
	} else if contents != "" && contents[len(contents)-1] != '\n' {
		contents += "\n"
	}
	contents += Line(hook)

	path := m.HookFile(hook)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fault.IO(err, "cannot create hooks directory")
	}
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		return fault.IO(err, "cannot write %s hook", hook)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fault.IO(err, "cannot stat %s hook", hook)
	}
	if err := os.Chmod(path, fi.Mode().Perm()|0o111); err != nil {
		return fault.IO(err, "cannot make %s hook executable", hook)
	}
	return nil
}

func (m *Manager) remove(hook string) error {
	contents, ok, err := m.read(hook)
	if err != nil || !ok {
		return err
	}
	out := hookRE.ReplaceAllStringFunc(contents, func(match string) string {
		if hookRE.FindStringSubmatch(match)[1] == hook {
			return ""
		}
		return match
	})
	fi, err := os.Stat(m.HookFile(hook))
	if err != nil {
		return fault.IO(err, "cannot stat %s hook", hook)
	}
	if err := os.WriteFile(m.HookFile(hook), []byte(out), fi.Mode().Perm()); err != nil {
		return fault.IO(err, "cannot write %s hook", hook)
	}
	return nil
}

// Status reports the state of the managed hooks.
func (m *Manager) Status() (Status, error) {
	ok, err := m.Installed(PreCommit)
	return Status{PreCommitInstalled: ok}, err
}

// Install adds the pre-commit line unless it is already present.
func (m *Manager) Install() error {
	ok, err := m.Installed(PreCommit)
	if err != nil || ok {
		return err
	}
	return m.add(PreCommit)
}

// Uninstall removes the pre-commit line and leaves the rest of the script.
func (m *Manager) Uninstall() error {
	ok, err := m.Installed(PreCommit)
	if err != nil || !ok {
		return err
	}
	return m.remove(PreCommit)
}
