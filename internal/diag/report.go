package diag

import (
	"os"
	"path/filepath"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"calm/internal/fault"
)

const canonicalCacheSize = 1024

// Report collects diagnostics from every tool of one invocation.
type Report struct {
	baseDir string

	mu       sync.Mutex
	items    []Diagnostic
	errors   int
	warnings int

	canon *lru.Cache[string, string]
}

// NewReport creates a report whose relative filenames resolve against baseDir.
func NewReport(baseDir string) *Report {
	cache, _ := lru.New[string, string](canonicalCacheSize)
	return &Report{baseDir: baseDir, canon: cache}
}

// BaseDir returns the directory relative filenames are resolved against.
func (r *Report) BaseDir() string { return r.baseDir }

// Add namespaces the code with toolID, canonicalizes the filename and appends.
// Safe for concurrent use.
func (r *Report) Add(toolID string, d Diagnostic) error {
	if d.Code != "" {
		d.Code = toolID + ":" + d.Code
	}
	if d.Filename != "" {
		abs, err := r.canonical(d.Filename)
		if err != nil {
			return err
		}
		d.Filename = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, d)
	switch d.Level {
	case LevelError:
		r.errors++
	case LevelWarning:
		r.warnings++
	}
	return nil
}

func (r *Report) canonical(name string) (string, error) {
	joined := name
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(r.baseDir, joined)
	}
	if hit, ok := r.canon.Get(joined); ok {
		return hit, nil
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fault.IO(err, "cannot resolve reported file %s", name)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", fault.IO(err, "cannot resolve reported file %s", name)
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", fault.IO(err, "cannot resolve reported file %s", name)
	}
	r.canon.Add(joined, resolved)
	return resolved, nil
}

// Sort orders diagnostics deterministically. Callers must ensure no Add is
// in flight.
func (r *Report) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	slices.SortStableFunc(r.items, Compare)
}

// HasErrors reports whether any error-level diagnostic was added.
func (r *Report) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors > 0
}

// Counts returns the number of errors and warnings.
func (r *Report) Counts() (errors, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors, r.warnings
}

func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Items returns a copy of the collected diagnostics.
func (r *Report) Items() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}
