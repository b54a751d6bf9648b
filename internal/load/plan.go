package load

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/datacampus/dcx/internal/format"
	"github.com/datacampus/dcx/internal/source"
	"github.com/datacampus/dcx/internal/warehouse"
)

// Plan is the effective configuration for one batch, computed once from
// the first file and applied to every file. It exists so the orchestrator
// never mutates the request mid-load: a downgraded expand mode lives
// here, not on the Request.
type Plan struct {
	// Kind is the resolved format (never Auto).
	Kind format.Kind
	// Headers are the sanitized column names from the first file's header,
	// nil when no header was detected.
	Headers []string
	// Expand is true when each header gets its own destination column.
	Expand bool
	// SkipHeader is the effective number of records to skip per file.
	SkipHeader int
}

// BuildPlan runs format detection against the first file of the batch.
// If expand-columns was requested but the batch is not delimited or has
// no detectable header, expansion is disabled with a warning rather than
// an error.
func BuildPlan(req *Request, first source.File, log zerolog.Logger) (*Plan, error) {
	plan := &Plan{
		Kind:       format.Detect(first.Path, req.Format),
		SkipHeader: req.SkipHeader,
	}

	if !plan.Kind.Delimited() {
		if req.ExpandColumns {
			log.Warn().Str("format", plan.Kind.String()).
				Msg("expand-columns only applies to csv/tsv input, storing lines as-is")
		}
		return plan, nil
	}

	headers, err := format.Headers(first.Path, plan.Kind)
	if err != nil {
		return nil, fmt.Errorf("detect headers in %s: %w", first.Name, err)
	}
	plan.Headers = headers

	if len(headers) > 0 {
		// The header row itself is never data.
		if plan.SkipHeader < 1 {
			plan.SkipHeader = 1
		}
		if req.ExpandColumns {
			plan.Expand = true
			log.Info().Int("columns", len(headers)).Msg("detected columns from header")
		}
	} else if req.ExpandColumns {
		log.Warn().Str("file", first.Name).
			Msg("no columns detected, falling back to single data column")
	}

	return plan, nil
}

// StageOptions translates the plan into per-file parsing options.
func (p *Plan) StageOptions() warehouse.StageOptions {
	return warehouse.StageOptions{
		Delimiter:  p.Kind.Delimiter(),
		SkipHeader: p.SkipHeader,
		FieldCount: len(p.Headers),
	}
}

// Mapping returns the bulk-copy column mapping for one file. fileName is
// the display name recorded into _source_file.
func (p *Plan) Mapping(req *Request, fileName string) []warehouse.ColumnMapping {
	mapping := []warehouse.ColumnMapping{
		{Column: "_source_file", Kind: warehouse.MapLiteral, Value: fileName},
	}
	if req.TrackMostRecent {
		mapping = append(mapping, warehouse.ColumnMapping{Column: "is_most_recent", Kind: warehouse.MapTrue})
	}
	for _, k := range req.TagKeys() {
		mapping = append(mapping, warehouse.ColumnMapping{Column: k, Kind: warehouse.MapLiteral, Value: req.Tags[k]})
	}

	switch {
	case p.Expand:
		for i, h := range p.Headers {
			mapping = append(mapping, warehouse.ColumnMapping{Column: h, Kind: warehouse.MapField, Index: i + 1})
		}
	case p.Kind.Delimited() && len(p.Headers) > 0:
		mapping = append(mapping, warehouse.ColumnMapping{Column: "data", Kind: warehouse.MapObjectJSON, Keys: p.Headers})
	default:
		mapping = append(mapping, warehouse.ColumnMapping{Column: "data", Kind: warehouse.MapLineJSON})
	}
	return mapping
}
