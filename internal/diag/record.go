package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"calm/internal/fault"
)

// record is the wire shape of one JSON diagnostic line.
type record struct {
	Filename *string `json:"filename"`
	Line     uint32  `json:"line"`
	Column   uint32  `json:"column"`
	Code     *string `json:"code"`
	Message  *string `json:"message"`
	Level    *string `json:"level"`
}

// DecodeRecord parses one line of JSON diagnostic output. The line must hold
// exactly one JSON object.
func DecodeRecord(line string) (Diagnostic, error) {
	data := bytes.TrimSpace([]byte(line))
	if len(data) == 0 || data[0] != '{' {
		return Diagnostic{}, fault.Dataf("malformed lint result %q: not a JSON object", line)
	}
	dec := json.NewDecoder(bytes.NewReader(data))

	var r record
	if err := dec.Decode(&r); err != nil {
		return Diagnostic{}, fault.Wrap(fault.KindData, err, "malformed lint result %q", line)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Diagnostic{}, fault.Dataf("malformed lint result %q: trailing data", line)
	}

	d := Diagnostic{Line: r.Line, Column: r.Column}
	if r.Filename != nil {
		d.Filename = *r.Filename
	}
	if r.Code != nil {
		d.Code = *r.Code
	}
	if r.Message != nil {
		d.Message = *r.Message
	}
	if r.Level != nil {
		lvl, ok := ParseLevel(*r.Level)
		if !ok {
			return Diagnostic{}, fault.Dataf("unknown level %q in lint result", *r.Level)
		}
		d.Level = lvl
	}
	return d, nil
}
