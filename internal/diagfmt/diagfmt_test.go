package diagfmt

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"calm/internal/diag"
)

func newReport(t *testing.T, files map[string]string, ds ...diag.Diagnostic) (*diag.Report, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	r := diag.NewReport(resolved)
	for _, d := range ds {
		if err := r.Add("tool", d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	r.Sort()
	return r, resolved
}

func TestHumanPlain(t *testing.T) {
	r, dir := newReport(t, map[string]string{"a.py": "x = 1\n"},
		diag.Diagnostic{Filename: "a.py", Line: 1, Column: 1, Code: "E1", Message: "bad"},
		diag.Diagnostic{Level: diag.LevelWarning},
	)
	var buf bytes.Buffer
	if err := Render(&buf, r, Options{Format: FormatHuman, DisplayDir: dir, Summary: true}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "<general>:0:0 E no info\n" +
		"a.py:1:1 tool:E1 bad\n" +
		"Lint finished with 1 error(s) and 1 warning(s).\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestHumanExtendedExcerpt(t *testing.T) {
	r, dir := newReport(t, map[string]string{"a.py": "def f():\n    unused_var = 1\n"},
		diag.Diagnostic{Filename: "a.py", Line: 2, Column: 5, Message: "unused"},
		diag.Diagnostic{Filename: "a.py", Line: 1, Column: 0, Message: "no column"},
	)
	var buf bytes.Buffer
	if err := Render(&buf, r, Options{Format: FormatHumanExtended, DisplayDir: dir}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "a.py:1:0 E no column\n" +
		"  def f():\n" +
		"a.py:2:5 E unused\n" +
		"  unused_var = 1\n" +
		"  ^^^^^^^^^^\n"
	if buf.String() != want {
		t.Fatalf("got:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestBuildExcerpt(t *testing.T) {
	cases := []struct {
		line   string
		column uint32
		caret  bool
		pad    int
		length int
	}{
		{"  foo(bar)", 7, true, 4, 3},
		{"  foo(bar)", 6, true, 3, 1},
		{"x", 0, false, 0, 0},
		{"  x", 1, false, 0, 0},
		{"_id2 = 1", 1, true, 0, 4},
		{"\tx =\t\tfoo", 7, true, 5, 3},
		{"a\tb\tcd", 5, true, 4, 2},
		{"é\tx", 4, true, 2, 1},
	}
	for _, tc := range cases {
		ex := buildExcerpt(tc.line, tc.column)
		if ex.hasCaret != tc.caret || ex.caretPad != tc.pad || ex.caretLen != tc.length {
			t.Errorf("buildExcerpt(%q, %d) = %+v", tc.line, tc.column, ex)
		}
		if strings.Contains(ex.text, "\t") {
			t.Errorf("buildExcerpt(%q, %d) kept a tab in %q", tc.line, tc.column, ex.text)
		}
	}
}

func TestSimple(t *testing.T) {
	r, dir := newReport(t, map[string]string{"b.js": ""},
		diag.Diagnostic{Filename: "b.js", Line: 4, Column: 2, Code: "semi", Message: "missing"},
		diag.Diagnostic{Message: "general"},
	)
	var buf bytes.Buffer
	if err := Render(&buf, r, Options{Format: FormatSimple}); err != nil {
		t.Fatal(err)
	}
	want := "<general>:0:0:general\n" + filepath.Join(dir, "b.js") + ":4:2:missing [tool:semi]\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestCheckstyleGroupsByFile(t *testing.T) {
	r, _ := newReport(t, map[string]string{"a.py": ""},
		diag.Diagnostic{Filename: "a.py", Line: 1, Code: "E1", Message: "one"},
		diag.Diagnostic{Filename: "a.py", Line: 2, Code: "E2", Message: "two", Level: diag.LevelWarning},
		diag.Diagnostic{Message: "general"},
	)
	var buf bytes.Buffer
	if err := Render(&buf, r, Options{Format: FormatCheckstyle}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `<checkstyle version="4.3">`) {
		t.Fatalf("missing root element:\n%s", buf.String())
	}

	var doc checkstyleDoc
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(doc.Files))
	}
	if doc.Files[0].Name != GeneralName {
		t.Errorf("first file = %q", doc.Files[0].Name)
	}
	errs := doc.Files[1].Errors
	if len(errs) != 2 {
		t.Fatalf("errors = %d, want 2", len(errs))
	}
	if errs[0].Source != "tool.E1" || errs[1].Source != "tool.E2" || errs[1].Severity != "warning" {
		t.Errorf("unexpected errors %+v", errs)
	}
}

func TestJSON(t *testing.T) {
	r, dir := newReport(t, map[string]string{"a.py": ""},
		diag.Diagnostic{Filename: "a.py", Line: 3, Message: "m"},
	)
	var buf bytes.Buffer
	if err := Render(&buf, r, Options{Format: FormatJSON, DisplayDir: dir}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || out.Errors != 1 || *out.Diagnostics[0].Filename != "a.py" || out.Diagnostics[0].Code != nil {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatHuman, FormatHumanExtended, FormatSimple, FormatCheckstyle, FormatJSON} {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
}
