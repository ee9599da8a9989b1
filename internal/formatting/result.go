// Package formatting keeps scratch copies of the files a format run touches.
// Formatters rewrite the copies in place; the originals change only on Apply.
package formatting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"

	"calm/internal/fault"
	"calm/internal/source"
)

// ScratchPrefix starts the name of every scratch copy.
const ScratchPrefix = ".calm-format-"

type entry struct {
	orig    string
	scratch string
}

// Result maps registered files to their scratch copies.
type Result struct {
	baseDir string
	order   []string
	files   map[string]*entry
}

// NewResult creates an empty result. Paths in diffs are shown relative to
// baseDir when they are inside it.
func NewResult(baseDir string) *Result {
	return &Result{baseDir: baseDir, files: make(map[string]*entry)}
}

// Register copies path to a scratch file next to it. Registering a file
// twice is a no-op.
func (r *Result) Register(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fault.IO(err, "cannot resolve %s", path)
	}
	if _, ok := r.files[abs]; ok {
		return nil
	}

	src, err := os.Open(abs)
	if err != nil {
		return fault.IO(err, "cannot open %s", path)
	}
	defer src.Close()

	dst, err := os.CreateTemp(filepath.Dir(abs), ScratchPrefix+"*-"+filepath.Base(abs))
	if err != nil {
		return fault.IO(err, "cannot create scratch copy of %s", path)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return fault.IO(err, "cannot copy %s", path)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return fault.IO(err, "cannot copy %s", path)
	}
	if fi, err := src.Stat(); err == nil {
		_ = os.Chmod(dst.Name(), fi.Mode().Perm())
	}

	r.files[abs] = &entry{orig: abs, scratch: dst.Name()}
	r.order = append(r.order, abs)
	return nil
}

// ScratchFile returns the scratch copy of a registered file.
func (r *Result) ScratchFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fault.IO(err, "cannot resolve %s", path)
	}
	e, ok := r.files[abs]
	if !ok {
		return "", fault.NotFoundf("%s was not registered for formatting", path)
	}
	return e.scratch, nil
}

// Files lists the registered originals in registration order.
func (r *Result) Files() []string { return slices.Clone(r.order) }

// Changed reports the originals whose scratch copy differs.
func (r *Result) Changed() ([]string, error) {
	var out []string
	for _, p := range r.order {
		before, after, err := r.contents(r.files[p])
		if err != nil {
			return nil, err
		}
		if before != after {
			out = append(out, p)
		}
	}
	return out, nil
}

// Diff writes a unified diff of every changed file to w.
func (r *Result) Diff(w io.Writer) error {
	for _, p := range r.order {
		before, after, err := r.contents(r.files[p])
		if err != nil {
			return err
		}
		if before == after {
			continue
		}
		name := filepath.ToSlash(source.DisplayPath(p, r.baseDir))
		edits := myers.ComputeEdits("", before, after)
		unified := gotextdiff.ToUnified("a/"+name, "b/"+name, before, edits)
		if _, err := fmt.Fprint(w, unified); err != nil {
			return fault.IO(err, "cannot write diff")
		}
	}
	return nil
}

// Apply writes the scratch contents back over the originals that changed.
func (r *Result) Apply() error {
	for _, p := range r.order {
		e := r.files[p]
		before, after, err := r.contents(e)
		if err != nil {
			return err
		}
		if before == after {
			continue
		}
		fi, err := os.Stat(e.orig)
		if err != nil {
			return fault.IO(err, "cannot stat %s", e.orig)
		}
		if err := os.WriteFile(e.orig, []byte(after), fi.Mode().Perm()); err != nil {
			return fault.IO(err, "cannot write %s", e.orig)
		}
	}
	return nil
}

// Close removes every scratch copy.
func (r *Result) Close() error {
	var first error
	for _, p := range r.order {
		if err := os.Remove(r.files[p].scratch); err != nil && !os.IsNotExist(err) && first == nil {
			first = fault.IO(err, "cannot remove scratch copy of %s", p)
		}
	}
	r.files = make(map[string]*entry)
	r.order = nil
	return first
}

func (r *Result) contents(e *entry) (before, after string, err error) {
	b, err := os.ReadFile(e.orig)
	if err != nil {
		return "", "", fault.IO(err, "cannot read %s", e.orig)
	}
	a, err := os.ReadFile(e.scratch)
	if err != nil {
		return "", "", fault.IO(err, "cannot read scratch copy of %s", e.orig)
	}
	return string(b), string(a), nil
}
