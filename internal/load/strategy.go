package load

import (
	"context"
	"fmt"

	"github.com/datacampus/dcx/internal/warehouse"
)

// applyStrategy performs the pre-load mutation inside the data
// transaction and returns the number of rows removed.
//
// Replace truncates the whole table; overwrite deletes exactly the rows
// whose tag columns equal the request's tag values; overwrite without
// tags has no scope to delete and degrades to append.
func applyStrategy(ctx context.Context, tx *warehouse.Tx, req *Request) (int64, error) {
	switch req.Strategy {
	case Replace:
		prior, err := tx.Count(ctx, "SELECT count(*) FROM "+req.Qualified())
		if err != nil {
			return 0, fmt.Errorf("count before truncate: %w", err)
		}
		if prior > 0 {
			if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+req.Qualified()); err != nil {
				return 0, fmt.Errorf("truncate %s: %w", req.Qualified(), err)
			}
		}
		return prior, nil

	case Overwrite:
		if len(req.Tags) == 0 {
			return 0, nil
		}
		where, args := tagPredicate(req)
		deleted, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", req.Qualified(), where), args...)
		if err != nil {
			return 0, fmt.Errorf("delete matching tags: %w", err)
		}
		return deleted, nil
	}
	return 0, nil
}

// markNotRecent flips is_most_recent off for existing rows in the
// request's tag scope, before the new (current) rows are copied in.
func markNotRecent(ctx context.Context, tx *warehouse.Tx, req *Request) (int64, error) {
	if !req.TrackMostRecent || len(req.Tags) == 0 {
		return 0, nil
	}
	where, args := tagPredicate(req)
	flipped, err := tx.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET is_most_recent = FALSE WHERE %s AND is_most_recent = TRUE",
		req.Qualified(), where,
	), args...)
	if err != nil {
		return 0, fmt.Errorf("mark existing rows not recent: %w", err)
	}
	return flipped, nil
}

// tagPredicate builds the ANDed tag equality predicate with bound
// parameters, in sorted key order. Tag values are never interpolated.
func tagPredicate(req *Request) (string, []any) {
	keys := req.TagKeys()
	where := ""
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i > 0 {
			where += " AND "
		}
		args = append(args, req.Tags[k])
		where += fmt.Sprintf("%s = $%d", warehouse.Ident(k), len(args))
	}
	return where, args
}
