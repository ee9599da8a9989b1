// Package source loads the files diagnostics point into so renderers can
// show excerpts.
package source

import (
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileFlags encodes how the content was normalized on load.
type FileFlags uint8

const (
	FileHadBOM FileFlags = 1 << iota
	FileNormalizedCRLF
)

// File is a loaded file with a line index.
type File struct {
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of every '\n'
	Flags   FileFlags
}

// Load reads path and normalizes BOM and CRLF line endings.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return FromBytes(path, content), nil
}

// FromBytes builds a File from in-memory content.
func FromBytes(path string, content []byte) *File {
	var flags FileFlags
	content, hadBOM := removeBOM(content)
	if hadBOM {
		flags |= FileHadBOM
	}
	content, crlf := normalizeCRLF(content)
	if crlf {
		flags |= FileNormalizedCRLF
	}
	return &File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Flags:   flags,
	}
}

// LineCount returns the number of lines, counting a trailing unterminated one.
func (f *File) LineCount() int {
	n := len(f.LineIdx)
	if len(f.Content) > 0 && f.Content[len(f.Content)-1] != '\n' {
		n++
	}
	return n
}

// Line returns line lineNum (1-based) without its terminator, or "" when
// out of range.
func (f *File) Line(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	lenLineIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		return ""
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return ""
	}

	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}
	if lineNum-1 < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}
	if start >= lenContent || start > end {
		return ""
	}
	return string(f.Content[start:end])
}
