package project

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"calm/internal/fault"
	"calm/internal/runner"
)

func git(ctx context.Context, dir string, args ...string) ([]string, error) {
	b, err := runner.NewExec(append([]string{"git"}, args...))
	if err != nil {
		return nil, err
	}
	var lines []string
	_, err = b.Dir(dir).Run(ctx, runner.Handlers{
		OnStdout: func(line string) (string, error) {
			lines = append(lines, line)
			return "", nil
		},
		Expect: true,
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// GitToplevel returns the root of the work tree containing dir.
func GitToplevel(ctx context.Context, dir string) (string, error) {
	lines, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil || len(lines) == 0 {
		return "", fault.Wrap(fault.KindNotFound, err, "%s is not inside a git work tree", dir)
	}
	return filepath.Clean(lines[0]), nil
}

// GitDir returns the absolute .git directory for dir.
func GitDir(ctx context.Context, dir string) (string, error) {
	lines, err := git(ctx, dir, "rev-parse", "--absolute-git-dir")
	if err != nil || len(lines) == 0 {
		return "", fault.Wrap(fault.KindNotFound, err, "%s is not inside a git repository", dir)
	}
	return filepath.Clean(lines[0]), nil
}

// ChangedFiles lists files that differ between the index and the work tree,
// as absolute paths in sorted order. Both sides of a rename are included.
func ChangedFiles(ctx context.Context, dir string) ([]string, error) {
	top, err := GitToplevel(ctx, dir)
	if err != nil {
		return nil, err
	}
	lines, err := git(ctx, top, "diff", "--no-color", "--no-ext-diff", "-M")
	if err != nil {
		return nil, err
	}
	var patch string
	if len(lines) > 0 {
		patch = strings.Join(lines, "\n") + "\n"
	}
	return ParseChangedFiles(strings.NewReader(patch), top)
}

// ParseChangedFiles extracts touched paths from a git patch, joined to root.
func ParseChangedFiles(r io.Reader, root string) ([]string, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fault.Wrap(fault.KindData, err, "cannot parse git diff")
	}
	seen := make(map[string]struct{})
	for _, f := range files {
		for _, name := range []string{f.OldName, f.NewName} {
			if name == "" {
				continue
			}
			seen[filepath.Join(root, filepath.FromSlash(name))] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}
