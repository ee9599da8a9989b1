package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest - фиксированный 256 битный хеш.
type Digest [32]byte

// HashString hashes s.
func HashString(s string) Digest {
	return sha256.Sum256([]byte(s))
}

// Combine hashes parts in order, separating them with NUL so ("ab", "c")
// and ("a", "bc") differ.
func Combine(parts ...string) Digest {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short returns the first 12 hex characters, enough to name cache dirs.
func (d Digest) Short() string { return d.String()[:12] }
