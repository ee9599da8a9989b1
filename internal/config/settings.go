package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"calm/internal/fault"
)

// SettingsFileName lives in the calm home directory.
const SettingsFileName = "settings.toml"

// Settings are per-user defaults for the CLI.
type Settings struct {
	// CacheDir replaces the derived per-project cache directory.
	CacheDir string `toml:"cache-dir"`
	// Format is the default lint output format.
	Format string `toml:"format"`
	// Color is auto, on or off.
	Color string `toml:"color"`
	// UI is auto, on or off.
	UI string `toml:"ui"`
}

// LoadSettings reads home/settings.toml. A missing file yields zero settings.
func LoadSettings(home string) (Settings, error) {
	var s Settings
	path := filepath.Join(home, SettingsFileName)
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fault.Wrap(fault.KindConfig, err, "%s: failed to parse TOML", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fault.Configf("%s: unknown setting %q", path, undecoded[0].String())
	}
	return s, nil
}
