// Package warehouse is the narrow client the loader talks to: SQL
// execution, a load-scoped staging table, COPY-based staging, and the
// insert-select bulk copy, all over a single pgx connection.
package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Client owns one warehouse connection for the duration of one load.
// It is not safe for concurrent use.
type Client struct {
	pool *pgxpool.Pool
}

// Connect opens and pings a connection. The caller owns the client and
// must Close it on every exit path.
func Connect(ctx context.Context, dsn string) (*Client, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Client{pool: pool}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.pool.Close()
}

// Exec runs a statement outside any data transaction and returns the
// number of rows affected.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Count runs a single-value count query.
func (c *Client) Count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Query runs an arbitrary read query. Callers must close the rows.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.pool.Query(ctx, sql, args...)
}

// SchemaExists reports whether a schema (namespace) exists.
func (c *Client) SchemaExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schema %s: %w", name, err)
	}
	return exists, nil
}

// CurrentUser returns the session user, recorded into audit rows.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var user string
	if err := c.pool.QueryRow(ctx, "SELECT current_user").Scan(&user); err != nil {
		return "", err
	}
	return user, nil
}

// CreateStage creates the transient staging table for one load. The table
// is session-scoped (TEMPORARY) and named uniquely per invocation, so it
// disappears with the connection no matter how the load ends.
func (c *Client) CreateStage(ctx context.Context, name string) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(
		"CREATE TEMPORARY TABLE %s (file_name text NOT NULL, line_no bigint NOT NULL, fields text[] NOT NULL)",
		Ident(name),
	))
	if err != nil {
		return fmt.Errorf("create stage %s: %w", name, err)
	}
	return nil
}

// Begin opens the data transaction for one load.
func (c *Client) Begin(ctx context.Context) (*Tx, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// ColumnInfo describes one column of an existing table.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
}

// Columns lists a table's columns in ordinal order.
func (c *Client) Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`,
		schema, table,
	)
	if err != nil {
		return nil, fmt.Errorf("describe %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var ci ColumnInfo
		if err := rows.Scan(&ci.Name, &ci.Type, &ci.Nullable, &ci.Default); err != nil {
			return nil, err
		}
		cols = append(cols, ci)
	}
	return cols, rows.Err()
}

// Ident quotes a single SQL identifier.
func Ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QualifiedIdent quotes a schema-qualified table identifier.
func QualifiedIdent(schema, table string) string {
	if schema == "" {
		return Ident(table)
	}
	return pgx.Identifier{schema, table}.Sanitize()
}
