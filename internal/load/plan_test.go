package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/datacampus/dcx/internal/format"
	"github.com/datacampus/dcx/internal/source"
	"github.com/datacampus/dcx/internal/warehouse"
)

func tempFile(t *testing.T, name, content string) source.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return source.File{Path: path, Name: name}
}

func TestBuildPlan_SingleColumn(t *testing.T) {
	req := &Request{Schema: "public", Table: "t"}
	plan, err := BuildPlan(req, tempFile(t, "lines.txt", "a\nb\n"), zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Kind != format.SingleColumn || plan.Expand || plan.Headers != nil {
		t.Errorf("unexpected plan: %+v", plan)
	}
	if plan.SkipHeader != 0 {
		t.Errorf("single-column should not skip lines by default, got %d", plan.SkipHeader)
	}
}

func TestBuildPlan_DelimitedBumpsSkip(t *testing.T) {
	req := &Request{Schema: "public", Table: "t"}
	plan, err := BuildPlan(req, tempFile(t, "d.csv", "name,id\nx,1\n"), zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.SkipHeader != 1 {
		t.Errorf("header row must be skipped, got skip=%d", plan.SkipHeader)
	}
	if len(plan.Headers) != 2 || plan.Headers[0] != "NAME" {
		t.Errorf("unexpected headers: %v", plan.Headers)
	}
	if plan.Expand {
		t.Error("expand must stay off unless requested")
	}
}

func TestBuildPlan_ExpandRequested(t *testing.T) {
	req := &Request{Schema: "public", Table: "t", ExpandColumns: true}
	plan, err := BuildPlan(req, tempFile(t, "d.csv", "\"First Name\",\"Id#\"\nalice,1\n"), zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if !plan.Expand {
		t.Fatal("expand should be enabled for a delimited file with headers")
	}
	if plan.Headers[0] != "FIRST_NAME" || plan.Headers[1] != "ID_" {
		t.Errorf("unexpected headers: %v", plan.Headers)
	}
}

func TestBuildPlan_ExpandDowngradedForSingleColumn(t *testing.T) {
	req := &Request{Schema: "public", Table: "t", ExpandColumns: true}
	plan, err := BuildPlan(req, tempFile(t, "lines.txt", "a\nb\n"), zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Expand {
		t.Error("expand must be downgraded for non-delimited input")
	}
	// The downgrade must not leak back into the request.
	if !req.ExpandColumns {
		t.Error("request must stay immutable")
	}
}

func TestBuildPlan_ExpandDowngradedWithoutHeader(t *testing.T) {
	req := &Request{Schema: "public", Table: "t", ExpandColumns: true}
	plan, err := BuildPlan(req, tempFile(t, "empty.csv", ""), zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Expand {
		t.Error("expand must be downgraded when no header is detected")
	}
}

func TestPlanStageOptions(t *testing.T) {
	plan := &Plan{Kind: format.CSV, Headers: []string{"A", "B"}, SkipHeader: 1}
	opts := plan.StageOptions()
	if opts.Delimiter != ',' || opts.SkipHeader != 1 || opts.FieldCount != 2 {
		t.Errorf("unexpected options: %+v", opts)
	}

	plan = &Plan{Kind: format.SingleColumn}
	opts = plan.StageOptions()
	if opts.Delimiter != 0 || opts.FieldCount != 0 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestPlanMapping_SingleColumn(t *testing.T) {
	req := &Request{
		Schema: "public", Table: "t",
		Tags:            map[string]string{"term_code": "2258"},
		TrackMostRecent: true,
	}
	plan := &Plan{Kind: format.SingleColumn}

	m := plan.Mapping(req, "census.txt")
	if len(m) != 4 {
		t.Fatalf("expected 4 mapped columns, got %d: %v", len(m), m)
	}
	if m[0].Column != "_source_file" || m[0].Kind != warehouse.MapLiteral || m[0].Value != "census.txt" {
		t.Errorf("unexpected source-file mapping: %+v", m[0])
	}
	if m[1].Column != "is_most_recent" || m[1].Kind != warehouse.MapTrue {
		t.Errorf("unexpected most-recent mapping: %+v", m[1])
	}
	if m[2].Column != "term_code" || m[2].Value != "2258" {
		t.Errorf("unexpected tag mapping: %+v", m[2])
	}
	if m[3].Column != "data" || m[3].Kind != warehouse.MapLineJSON {
		t.Errorf("unexpected data mapping: %+v", m[3])
	}
}

func TestPlanMapping_Expanded(t *testing.T) {
	req := &Request{Schema: "public", Table: "t"}
	plan := &Plan{Kind: format.CSV, Headers: []string{"NAME", "ID_"}, Expand: true}

	m := plan.Mapping(req, "d.csv")
	if len(m) != 3 {
		t.Fatalf("expected 3 mapped columns, got %v", m)
	}
	if m[1].Column != "NAME" || m[1].Kind != warehouse.MapField || m[1].Index != 1 {
		t.Errorf("unexpected field mapping: %+v", m[1])
	}
	if m[2].Column != "ID_" || m[2].Index != 2 {
		t.Errorf("unexpected field mapping: %+v", m[2])
	}
}

func TestPlanMapping_DefaultDelimited(t *testing.T) {
	req := &Request{Schema: "public", Table: "t"}
	plan := &Plan{Kind: format.TSV, Headers: []string{"NAME", "ID_"}}

	m := plan.Mapping(req, "d.tsv")
	last := m[len(m)-1]
	if last.Column != "data" || last.Kind != warehouse.MapObjectJSON {
		t.Fatalf("expected object mapping, got %+v", last)
	}
	if len(last.Keys) != 2 || last.Keys[0] != "NAME" {
		t.Errorf("unexpected object keys: %v", last.Keys)
	}
}
