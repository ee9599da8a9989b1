package source

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recently loaded files so a report with many diagnostics in the
// same file reads it once.
type Cache struct {
	files *lru.Cache[string, *File]
}

// NewCache creates a cache holding at most size files.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 64
	}
	c, _ := lru.New[string, *File](size)
	return &Cache{files: c}
}

// Get returns the file at path, loading it on a miss. Failed loads are not
// cached.
func (c *Cache) Get(path string) (*File, error) {
	if f, ok := c.files.Get(path); ok {
		return f, nil
	}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.files.Add(path, f)
	return f, nil
}

// Line is a convenience for Get(path).Line(n); errors yield "".
func (c *Cache) Line(path string, n uint32) (string, bool) {
	f, err := c.Get(path)
	if err != nil {
		return "", false
	}
	if int(n) > f.LineCount() || n == 0 {
		return "", false
	}
	return f.Line(n), true
}
