package load

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/datacampus/dcx/internal/warehouse"
)

// Audit messages from failed loads are truncated to this many characters.
const maxAuditError = 1000

// writeAudit appends one row to the load history table. It runs outside
// the data transaction so failed loads are recorded too.
func writeAudit(ctx context.Context, wh *warehouse.Client, req *Request, loadID uuid.UUID,
	rows, files, deleted int64, status, errMsg string) error {

	tags := []byte("{}")
	if len(req.Tags) > 0 {
		var err error
		tags, err = json.Marshal(req.Tags)
		if err != nil {
			return fmt.Errorf("serialize tags: %w", err)
		}
	}

	if len(errMsg) > maxAuditError {
		errMsg = errMsg[:maxAuditError]
	}
	var errVal *string
	if errMsg != "" {
		errVal = &errMsg
	}

	user, err := wh.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolve audit user: %w", err)
	}

	sql := fmt.Sprintf(`INSERT INTO %s (
		load_id, table_name, tags, strategy, row_count, file_count,
		deleted_count, status, error_message, user_name
	) VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8, $9, $10)`,
		warehouse.QualifiedIdent(req.Schema, AuditTableName))

	_, err = wh.Exec(ctx, sql,
		loadID, req.Schema+"."+req.Table, string(tags), req.Strategy.String(),
		rows, files, deleted, status, errVal, user,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
