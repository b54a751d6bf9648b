// Package format classifies input files as delimited or single-column and
// extracts sanitized column names from delimited headers.
package format

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the shape of an input file.
type Kind int

const (
	Auto Kind = iota
	SingleColumn
	CSV
	TSV
)

// ParseKind parses a format hint flag value.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "auto", "":
		return Auto, nil
	case "single-column":
		return SingleColumn, nil
	case "csv":
		return CSV, nil
	case "tsv":
		return TSV, nil
	}
	return Auto, fmt.Errorf("unknown format %q (expected auto, csv, tsv, or single-column)", s)
}

func (k Kind) String() string {
	switch k {
	case SingleColumn:
		return "single-column"
	case CSV:
		return "csv"
	case TSV:
		return "tsv"
	}
	return "auto"
}

// Delimited reports whether the kind has separated fields.
func (k Kind) Delimited() bool { return k == CSV || k == TSV }

// Delimiter returns the field separator, or 0 for single-column input.
func (k Kind) Delimiter() rune {
	switch k {
	case CSV:
		return ','
	case TSV:
		return '\t'
	}
	return 0
}

// Detect resolves the effective kind for a file. A non-auto hint wins;
// otherwise the extension decides (.csv, .tsv, anything else is treated
// as single-column text).
func Detect(path string, hint Kind) Kind {
	if hint != Auto {
		return hint
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV
	case ".tsv":
		return TSV
	}
	return SingleColumn
}

// Headers reads the first line of a delimited file and returns its
// sanitized column names. Returns nil if the file is empty or the kind
// has no delimiter.
func Headers(path string, kind Kind) ([]string, error) {
	if !kind.Delimited() {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = kind.Delimiter()
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if err != nil {
		// Includes io.EOF for an empty file: no header to detect.
		return nil, nil
	}

	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = SanitizeColumn(h)
	}
	return headers, nil
}

// SanitizeColumn turns an arbitrary header cell into a deterministic
// warehouse identifier: non-alphanumerics become underscores, a leading
// digit gets an underscore prefix, the result is upper-cased, and an
// empty cell falls back to COL.
func SanitizeColumn(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" {
		return "COL"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return strings.ToUpper(s)
}
