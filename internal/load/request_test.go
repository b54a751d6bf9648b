package load

import (
	"testing"

	"github.com/datacampus/dcx/internal/format"
)

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"append":    Append,
		"overwrite": Overwrite,
		"":          Overwrite,
		"replace":   Replace,
		"truncate":  Replace,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		if err != nil {
			t.Fatalf("ParseStrategy(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseStrategy("upsert"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestParseDest(t *testing.T) {
	schema, table, err := ParseDest("loads", "raw")
	if err != nil || schema != "raw" || table != "loads" {
		t.Errorf("bare name: got %s.%s, %v", schema, table, err)
	}

	schema, table, err = ParseDest("loads", "")
	if err != nil || schema != "public" || table != "loads" {
		t.Errorf("bare name without connection schema: got %s.%s, %v", schema, table, err)
	}

	schema, table, err = ParseDest("staging.loads", "raw")
	if err != nil || schema != "staging" || table != "loads" {
		t.Errorf("qualified name: got %s.%s, %v", schema, table, err)
	}

	if _, _, err := ParseDest("db.staging.loads", "raw"); err == nil {
		t.Error("expected error for cross-database destination")
	}
}

func TestRequestValidate(t *testing.T) {
	req := &Request{Schema: "public", Table: "t", Tags: map[string]string{"term_code": "2258"}}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	req = &Request{Schema: "public", Table: "t", Tags: map[string]string{"term code": "2258"}}
	if err := req.Validate(); err == nil {
		t.Error("expected error for non-identifier tag key")
	}

	req = &Request{Schema: "public", Table: "t", SkipHeader: -1}
	if err := req.Validate(); err == nil {
		t.Error("expected error for negative skip-header")
	}

	req = &Request{Schema: "public", Table: ""}
	if err := req.Validate(); err == nil {
		t.Error("expected error for missing table")
	}
}

func TestRequestValidate_SanitizeTags(t *testing.T) {
	req := &Request{
		Schema: "public", Table: "t",
		Tags:         map[string]string{"term code": "2258"},
		SanitizeTags: true,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.Tags["TERM_CODE"] != "2258" {
		t.Errorf("tag key should be sanitized, got %v", req.Tags)
	}
}

func TestTagKeysSorted(t *testing.T) {
	req := &Request{
		Schema: "public", Table: "t",
		Tags: map[string]string{"zeta": "1", "alpha": "2", "mid": "3"},
	}
	keys := req.TagKeys()
	if len(keys) != 3 || keys[0] != "alpha" || keys[1] != "mid" || keys[2] != "zeta" {
		t.Errorf("keys not sorted: %v", keys)
	}
}

func TestTagPredicate(t *testing.T) {
	req := &Request{
		Schema: "public", Table: "t",
		Tags: map[string]string{"term_code": "2258", "extract_type": "CENSUS"},
	}
	where, args := tagPredicate(req)
	want := `"extract_type" = $1 AND "term_code" = $2`
	if where != want {
		t.Errorf("predicate = %q, want %q", where, want)
	}
	if len(args) != 2 || args[0] != "CENSUS" || args[1] != "2258" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestDesiredColumns(t *testing.T) {
	req := &Request{
		Schema: "public", Table: "t",
		Tags:            map[string]string{"term_code": "2258"},
		TrackMostRecent: true,
	}
	plan := &Plan{Kind: format.SingleColumn}

	cols := desiredColumns(req, plan)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	want := []string{"_source_file", "_load_timestamp", "is_most_recent", "term_code", "data"}
	if len(names) != len(want) {
		t.Fatalf("columns = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("columns = %v, want %v", names, want)
		}
	}

	// Expanded layout swaps the data column for one column per header.
	plan = &Plan{Kind: format.CSV, Headers: []string{"FIRST_NAME", "ID_"}, Expand: true}
	cols = desiredColumns(req, plan)
	last := cols[len(cols)-1]
	if last.name != "ID_" {
		t.Errorf("expected expanded header columns, got %v", cols)
	}
	for _, c := range cols {
		if c.name == "data" {
			t.Error("expanded layout should not include the data column")
		}
	}
}
