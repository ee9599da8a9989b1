package diag

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"calm/internal/fault"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	return resolved
}

func TestParseLevelVocabulary(t *testing.T) {
	cases := map[string]Level{
		"error": LevelError, "E": LevelError, "Err": LevelError,
		"warning": LevelWarning, "W": LevelWarning, "WARN": LevelWarning,
		"info": LevelInfo, "INFO": LevelInfo,
	}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseLevel("fatal"); ok {
		t.Error("fatal should not parse")
	}
	if LevelOrDefault("fatal") != LevelError {
		t.Error("unknown level must default to error")
	}
}

func TestFromCaptures(t *testing.T) {
	d, err := FromCaptures(map[string]string{"filename": "src/x.py", "line": "10", "message": "unused variable"})
	if err != nil {
		t.Fatalf("FromCaptures: %v", err)
	}
	if d.Line != 10 || d.Column != 0 || d.Level != LevelError || d.Code != "" {
		t.Errorf("unexpected diagnostic %+v", d)
	}

	d, err = FromCaptures(map[string]string{"filename": "a", "line": "x", "column": "99999999999", "level": "warn"})
	if err != nil {
		t.Fatalf("FromCaptures: %v", err)
	}
	if d.Line != 0 || d.Column != 0 || d.Level != LevelWarning {
		t.Errorf("unexpected diagnostic %+v", d)
	}

	// пустая группа code считается отсутствующим кодом
	d, err = FromCaptures(map[string]string{"filename": "a", "code": ""})
	if err != nil {
		t.Fatalf("FromCaptures: %v", err)
	}
	r := NewReport(t.TempDir())
	if err := r.Add("flake8", Diagnostic{Code: d.Code, Message: "m"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if code := r.Items()[0].Code; code != "" {
		t.Errorf("empty captured code became %q", code)
	}

	_, err = FromCaptures(map[string]string{"line": "1"})
	if !fault.Is(err, fault.KindConfig) {
		t.Fatalf("missing filename: got %v, want config error", err)
	}
}

func TestDecodeRecord(t *testing.T) {
	d, err := DecodeRecord(`{"filename":"a.py","line":3,"column":5,"level":"warning","message":"bad style"}`)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if d.Filename != "a.py" || d.Line != 3 || d.Column != 5 || d.Level != LevelWarning || d.Message != "bad style" {
		t.Errorf("unexpected diagnostic %+v", d)
	}

	d, err = DecodeRecord(`{"filename":null,"line":0,"column":0,"code":null,"message":"general"}`)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if !d.IsGeneral() || d.Level != LevelError {
		t.Errorf("unexpected diagnostic %+v", d)
	}

	if _, err := DecodeRecord("  {\"message\":\"padded\"}\r "); err != nil {
		t.Errorf("surrounding whitespace rejected: %v", err)
	}

	malformed := []string{
		"not json",
		`{"line":-1}`,
		`{"level":"loud"}`,
		"",
		"null",
		"[]",
		`"a.py"`,
		`{"filename":null,"message":"x"} trailing junk`,
		`{"filename":null}{"oops":1}`,
		`{"message":"x"}}`,
	}
	for _, bad := range malformed {
		if _, err := DecodeRecord(bad); !fault.Is(err, fault.KindData) {
			t.Errorf("DecodeRecord(%q) = %v, want data error", bad, err)
		}
	}
}

func TestReportAddNamespacesAndCanonicalizes(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "src/x.py")

	r := NewReport(dir)
	if err := r.Add("ruff", Diagnostic{Filename: "src/x.py", Line: 10, Code: "F841"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add("ruff", Diagnostic{Message: "general", Level: LevelWarning}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	items := r.Items()
	if items[0].Filename != want {
		t.Errorf("filename = %q, want %q", items[0].Filename, want)
	}
	if items[0].Code != "ruff:F841" {
		t.Errorf("code = %q", items[0].Code)
	}
	if items[1].Code != "" {
		t.Errorf("absent code became %q", items[1].Code)
	}
	e, w := r.Counts()
	if e != 1 || w != 1 || !r.HasErrors() {
		t.Errorf("counts = %d/%d", e, w)
	}

	err := r.Add("ruff", Diagnostic{Filename: "missing.py"})
	if !fault.Is(err, fault.KindIO) {
		t.Fatalf("missing file: got %v, want io error", err)
	}
	if r.Len() != 2 {
		t.Errorf("failed add must not append, len = %d", r.Len())
	}
}

func TestReportWarningsOnlyHasNoErrors(t *testing.T) {
	r := NewReport(t.TempDir())
	_ = r.Add("t", Diagnostic{Level: LevelWarning})
	_ = r.Add("t", Diagnostic{Level: LevelInfo})
	if r.HasErrors() {
		t.Fatal("warning/info-only report must not have errors")
	}
	e, w := r.Counts()
	if e != 0 || w != 1 {
		t.Errorf("counts = %d/%d, info must not be counted", e, w)
	}
}

func TestReportSortTotalOrder(t *testing.T) {
	r := NewReport(t.TempDir())
	in := []Diagnostic{
		{Filename: "", Line: 0, Message: "general"},
		{Filename: "/b", Line: 1},
		{Filename: "/a", Line: 2, Column: 1},
		{Filename: "/a", Line: 2, Column: 1, Level: LevelWarning},
		{Filename: "/a", Line: 1, Column: 9},
		{Filename: "/a", Line: 2, Column: 1, Code: "t:A"},
	}
	r.items = append(r.items, in...)
	r.Sort()
	items := r.Items()
	for i := 1; i < len(items); i++ {
		if Compare(items[i-1], items[i]) > 0 {
			t.Fatalf("not sorted at %d: %+v > %+v", i, items[i-1], items[i])
		}
	}
	if !items[0].IsGeneral() {
		t.Error("general issue should sort first")
	}
	if items[2].Level != LevelError || items[3].Level != LevelWarning {
		t.Errorf("level tiebreak wrong: %+v", items[2:4])
	}

	r.Sort()
	again := r.Items()
	if len(again) != len(items) {
		t.Fatalf("second sort changed length: %d != %d", len(again), len(items))
	}
	for i := range items {
		if again[i] != items[i] {
			t.Errorf("second sort moved item %d: %+v != %+v", i, again[i], items[i])
		}
	}
}

func TestReportConcurrentAdd(t *testing.T) {
	r := NewReport(t.TempDir())
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				_ = r.Add("t", Diagnostic{Level: LevelWarning})
			}
		}()
	}
	wg.Wait()
	if r.Len() != 1000 {
		t.Fatalf("len = %d, want 1000", r.Len())
	}
}
