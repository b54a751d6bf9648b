package format

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDetect_ByExtension(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"data.csv", CSV},
		{"data.CSV", CSV},
		{"data.tsv", TSV},
		{"data.txt", SingleColumn},
		{"CENSUS_2258", SingleColumn},
		{"report.dat", SingleColumn},
	}
	for _, c := range cases {
		if got := Detect(c.path, Auto); got != c.want {
			t.Errorf("Detect(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestDetect_HintWins(t *testing.T) {
	if got := Detect("data.csv", SingleColumn); got != SingleColumn {
		t.Errorf("hint should override extension, got %v", got)
	}
	if got := Detect("data.txt", TSV); got != TSV {
		t.Errorf("hint should override extension, got %v", got)
	}
}

func TestParseKind(t *testing.T) {
	for s, want := range map[string]Kind{
		"auto": Auto, "": Auto, "csv": CSV, "tsv": TSV, "single-column": SingleColumn,
	} {
		got, err := ParseKind(s)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseKind("parquet"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSanitizeColumn(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"First Name", "FIRST_NAME"},
		{"Id#", "ID_"},
		{"term_code", "TERM_CODE"},
		{"2023 total", "_2023_TOTAL"},
		{"", "COL"},
		{"   ", "COL"},
		{"already_OK", "ALREADY_OK"},
		{"a-b.c", "A_B_C"},
	}
	for _, c := range cases {
		if got := SanitizeColumn(c.in); got != c.want {
			t.Errorf("SanitizeColumn(%q) = %q, want %q", c.in, got, c.want)
		}
		// The sanitizer must be deterministic.
		if again := SanitizeColumn(c.in); again != SanitizeColumn(c.in) {
			t.Errorf("SanitizeColumn(%q) is not deterministic: %q vs %q", c.in, again, SanitizeColumn(c.in))
		}
	}
}

func TestHeaders_Quoted(t *testing.T) {
	path := writeFile(t, "people.csv", "\"First Name\",\"Id#\"\nalice,1\n")
	headers, err := Headers(path, CSV)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if len(headers) != 2 || headers[0] != "FIRST_NAME" || headers[1] != "ID_" {
		t.Errorf("unexpected headers: %v", headers)
	}
}

func TestHeaders_TSV(t *testing.T) {
	path := writeFile(t, "data.tsv", "name\tterm code\nx\t2258\n")
	headers, err := Headers(path, TSV)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if len(headers) != 2 || headers[0] != "NAME" || headers[1] != "TERM_CODE" {
		t.Errorf("unexpected headers: %v", headers)
	}
}

func TestHeaders_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	headers, err := Headers(path, CSV)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if headers != nil {
		t.Errorf("expected nil headers for empty file, got %v", headers)
	}
}

func TestHeaders_NotDelimited(t *testing.T) {
	path := writeFile(t, "lines.txt", "a\nb\n")
	headers, err := Headers(path, SingleColumn)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if headers != nil {
		t.Errorf("single-column input has no headers, got %v", headers)
	}
}
