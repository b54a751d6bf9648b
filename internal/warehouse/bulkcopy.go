package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// MappingKind selects how one destination column is populated from the
// staging table.
type MappingKind int

const (
	// MapLiteral binds Value as a parameter (source file name, tag values).
	MapLiteral MappingKind = iota
	// MapTrue writes the constant TRUE (most-recent marker).
	MapTrue
	// MapField projects the Index-th (1-based) staged field.
	MapField
	// MapLineJSON wraps the first staged field as a JSON scalar.
	MapLineJSON
	// MapObjectJSON builds a JSON object from Keys and the staged fields.
	MapObjectJSON
)

// ColumnMapping is one destination column of a bulk copy.
type ColumnMapping struct {
	Column string
	Kind   MappingKind
	Value  string
	Index  int
	Keys   []string
}

// BulkCopy moves one staged file into the destination table with a single
// insert-select. The whole statement succeeds or fails as a unit; a
// failure leaves the transaction poisoned, which is exactly the
// abort-the-batch behavior the loader wants. Returns rows inserted.
func (t *Tx) BulkCopy(ctx context.Context, stage, fileName, dest string, mapping []ColumnMapping) (int64, error) {
	cols := make([]string, len(mapping))
	exprs := make([]string, len(mapping))
	args := []any{fileName}

	for i, m := range mapping {
		cols[i] = Ident(m.Column)
		switch m.Kind {
		case MapLiteral:
			args = append(args, m.Value)
			exprs[i] = fmt.Sprintf("$%d", len(args))
		case MapTrue:
			exprs[i] = "TRUE"
		case MapField:
			exprs[i] = fmt.Sprintf("fields[%d]", m.Index)
		case MapLineJSON:
			exprs[i] = "to_jsonb(fields[1])"
		case MapObjectJSON:
			args = append(args, m.Keys)
			exprs[i] = fmt.Sprintf("jsonb_object($%d::text[], fields)", len(args))
		default:
			return 0, fmt.Errorf("unknown mapping kind %d for column %s", m.Kind, m.Column)
		}
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s WHERE file_name = $1 ORDER BY line_no",
		dest, strings.Join(cols, ", "), strings.Join(exprs, ", "), Ident(stage),
	)
	rows, err := t.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("copy %s into %s: %w", fileName, dest, err)
	}
	return rows, nil
}
