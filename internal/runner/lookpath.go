package runner

import (
	"os"
	"path/filepath"
	"strings"

	"calm/internal/fault"
)

// LookPath resolves name against dirs the way a shell resolves it against
// PATH. Names containing a separator are returned unchanged.
func LookPath(name string, dirs []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") {
		return name, nil
	}
	for _, dir := range dirs {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fault.Wrap(fault.KindIO, os.ErrNotExist, "cannot find executable %q", name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
