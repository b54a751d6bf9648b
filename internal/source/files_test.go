package source

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(out)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestResolve_SingleFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"data.txt": "x\n"})
	set, err := Resolve(filepath.Join(dir, "data.txt"), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer set.Close()

	if len(set.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(set.Files))
	}
	if set.Files[0].Name != "data.txt" {
		t.Errorf("unexpected display name %q", set.Files[0].Name)
	}
}

func TestResolve_DirectorySortedAndHiddenSkipped(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"b.txt":        "b\n",
		"a.txt":        "a\n",
		".hidden":      "nope\n",
		"sub/c.txt":    "c\n",
		"sub/.DS_Store": "nope\n",
	})
	set, err := Resolve(dir, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer set.Close()

	if len(set.Files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(set.Files), set.Files)
	}
	if set.Files[0].Name != "a.txt" || set.Files[1].Name != "b.txt" || set.Files[2].Name != "c.txt" {
		t.Errorf("files not in lexicographic order: %v", set.Files)
	}
}

func TestResolve_ZipExtractsAndCleansUp(t *testing.T) {
	archive := writeZip(t, map[string]string{
		"inner/one.txt": "1\n",
		"two.txt":       "2\n",
		".hidden":       "nope\n",
	})
	set, err := Resolve(archive, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(set.Files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(set.Files), set.Files)
	}

	scratch := filepath.Dir(set.Files[0].Path)
	if err := set.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Errorf("scratch dir %s should be removed after Close", scratch)
	}
	// Close is idempotent.
	if err := set.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestResolve_ZipSlipRejected(t *testing.T) {
	archive := writeZip(t, map[string]string{"../escape.txt": "bad\n"})
	if _, err := Resolve(archive, nil); err == nil {
		t.Fatal("expected error for zip entry escaping the extraction dir")
	}
}

func TestResolve_IncludeFilter(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt": "a\n",
		"b.csv": "b\n",
		"c.TXT": "c\n",
	})
	set, err := Resolve(dir, []string{"txt"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer set.Close()

	if len(set.Files) != 2 {
		t.Fatalf("expected 2 .txt files, got %d: %v", len(set.Files), set.Files)
	}
}

func TestCheck_ValidFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"ok.txt": "short\nlonger line\n"})
	rep := Check(File{Path: filepath.Join(dir, "ok.txt"), Name: "ok.txt"})
	if !rep.Valid() {
		t.Fatalf("expected valid, got %v", rep.Err)
	}
	if rep.Lines != 2 {
		t.Errorf("expected 2 lines, got %d", rep.Lines)
	}
	if rep.MaxLine != int64(len("longer line")) {
		t.Errorf("unexpected max line %d", rep.MaxLine)
	}
}

func TestCheck_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 'x', '\n'}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rep := Check(File{Path: path, Name: "bad.txt"})
	if rep.Valid() {
		t.Fatal("expected invalid UTF-8 to fail the check")
	}
}

func TestCheck_MissingFile(t *testing.T) {
	rep := Check(File{Path: "/nonexistent/file.txt", Name: "file.txt"})
	if rep.Valid() {
		t.Fatal("expected error for missing file")
	}
}
