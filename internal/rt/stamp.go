package rt

import (
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when stamp format changes.
const stampSchemaVersion uint16 = 1

const stampFile = ".calm-stamp.mp"

// stamp records what was last installed into a runtime so an unchanged
// package set skips the package manager.
type stamp struct {
	Schema   uint16
	Type     string
	Flavor   string
	Packages []Package
}

func newStamp(typ string, spec Spec) stamp {
	return stamp{Schema: stampSchemaVersion, Type: typ, Flavor: spec.Flavor, Packages: spec.SortedPackages()}
}

func (s stamp) equal(o stamp) bool {
	return s.Schema == o.Schema && s.Type == o.Type && s.Flavor == o.Flavor && slices.Equal(s.Packages, o.Packages)
}

func readStamp(dir string) (stamp, bool, error) {
	f, err := os.Open(filepath.Join(dir, stampFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stamp{}, false, nil
		}
		return stamp{}, false, err
	}
	defer f.Close()

	var s stamp
	if err := msgpack.NewDecoder(f).Decode(&s); err != nil {
		// старый или битый stamp просто переустанавливает пакеты
		return stamp{}, false, nil
	}
	return s, true, nil
}

func writeStamp(dir string, s stamp) error {
	f, err := os.CreateTemp(dir, "tmp-stamp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(&s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), filepath.Join(dir, stampFile))
}

// upToDate reports whether dir already holds exactly want.
func upToDate(dir string, want stamp) bool {
	got, ok, err := readStamp(dir)
	return err == nil && ok && got.equal(want)
}
