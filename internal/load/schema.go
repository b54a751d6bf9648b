package load

import (
	"context"
	"fmt"
	"strings"

	"github.com/datacampus/dcx/internal/warehouse"
)

// AuditTableName is the append-only load history table, created in the
// destination's schema when auditing is enabled.
const AuditTableName = "_dcx_load_history"

// column is one desired destination column.
type column struct {
	name string
	def  string
}

// desiredColumns derives the destination column set. It is a pure
// function of the request's tags and flags plus the detected plan.
func desiredColumns(req *Request, plan *Plan) []column {
	cols := []column{
		{"_source_file", "text"},
		{"_load_timestamp", "timestamptz NOT NULL DEFAULT now()"},
	}
	if req.TrackMostRecent {
		cols = append(cols, column{"is_most_recent", "boolean DEFAULT TRUE"})
	}
	for _, k := range req.TagKeys() {
		cols = append(cols, column{k, "text"})
	}
	if plan.Expand {
		for _, h := range plan.Headers {
			cols = append(cols, column{h, "text"})
		}
	} else {
		cols = append(cols, column{"data", "jsonb"})
	}
	return cols
}

// ensureSchema verifies the destination schema exists, creating it when
// requested. A missing schema without create permission is the one
// caller-recoverable condition and gets its own error type.
func ensureSchema(ctx context.Context, wh *warehouse.Client, req *Request) error {
	exists, err := wh.SchemaExists(ctx, req.Schema)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if !req.CreateSchema {
		return &SchemaNotFoundError{Schema: req.Schema}
	}
	if _, err := wh.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+warehouse.Ident(req.Schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", req.Schema, err)
	}
	return nil
}

// ensureTable creates the destination table if absent. Pre-existing
// tables are left alone, except that the most-recent column is added
// additively when tracking is requested; a failure there is swallowed
// since the column may exist with a different definition.
func ensureTable(ctx context.Context, wh *warehouse.Client, req *Request, plan *Plan) error {
	cols := desiredColumns(req, plan)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = warehouse.Ident(c.name) + " " + c.def
	}

	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", req.Qualified(), strings.Join(defs, ", "))
	if _, err := wh.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", req.Qualified(), err)
	}

	if req.TrackMostRecent {
		_, _ = wh.Exec(ctx, fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN IF NOT EXISTS is_most_recent boolean DEFAULT TRUE",
			req.Qualified(),
		))
	}
	return nil
}

// ensureAuditTable creates the append-only load history table,
// independent of the destination table.
func ensureAuditTable(ctx context.Context, wh *warehouse.Client, schema string) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		load_id uuid,
		table_name text,
		tags jsonb,
		strategy text,
		row_count bigint,
		file_count integer,
		deleted_count bigint,
		load_timestamp timestamptz NOT NULL DEFAULT now(),
		status text,
		error_message text,
		user_name text
	)`, warehouse.QualifiedIdent(schema, AuditTableName))
	if _, err := wh.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}
