package diagfmt

import (
	"encoding/xml"
	"io"
	"strings"

	"calm/internal/diag"
)

type checkstyleDoc struct {
	XMLName xml.Name         `xml:"checkstyle"`
	Version string           `xml:"version,attr"`
	Files   []checkstyleFile `xml:"file"`
}

type checkstyleFile struct {
	Name   string            `xml:"name,attr"`
	Errors []checkstyleError `xml:"error"`
}

type checkstyleError struct {
	Severity string `xml:"severity,attr"`
	Line     uint32 `xml:"line,attr"`
	Column   uint32 `xml:"column,attr"`
	Source   string `xml:"source,attr"`
	Message  string `xml:"message,attr"`
}

// Checkstyle writes the report as checkstyle 4.3 XML, one <file> element per
// distinct filename in report order.
func Checkstyle(w io.Writer, r *diag.Report) error {
	doc := checkstyleDoc{Version: "4.3"}
	byName := make(map[string]int)

	for _, d := range r.Items() {
		name := d.Filename
		if d.IsGeneral() {
			name = GeneralName
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(doc.Files)
			byName[name] = idx
			doc.Files = append(doc.Files, checkstyleFile{Name: name})
		}
		doc.Files[idx].Errors = append(doc.Files[idx].Errors, checkstyleError{
			Severity: d.Level.String(),
			Line:     d.Line,
			Column:   d.Column,
			Source:   strings.ReplaceAll(d.Code, ":", "."),
			Message:  d.Message,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
