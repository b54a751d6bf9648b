package load

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/datacampus/dcx/internal/source"
	"github.com/datacampus/dcx/internal/warehouse"
)

// Result is the outcome of one committed load.
type Result struct {
	Rows    int64
	Files   int
	Deleted int64
	Grants  []string
	// LoadID is the audit identifier, empty when auditing is off.
	LoadID string
	// Duration covers the whole load call.
	Duration time.Duration
}

// Run executes the full load pipeline: resolve → plan → reconcile schema →
// stage+copy inside one data transaction → grants → audit.
//
// Structural changes (schemas, tables, columns) happen before the data
// transaction and persist even when the load later fails; the per-file
// copies are all-or-nothing. The scratch extraction directory is removed
// on every exit path. The caller owns the warehouse client and closes it.
func Run(ctx context.Context, wh *warehouse.Client, log zerolog.Logger, req *Request, src string) (*Result, error) {
	start := time.Now()
	loadID := uuid.New()

	// Phase 1: resolve the file list.
	files, err := source.Resolve(src, req.Include)
	if err != nil {
		return nil, &PhaseError{Phase: "resolve", Err: err}
	}
	defer files.Close()

	if len(files.Files) == 0 {
		return nil, &PhaseError{Phase: "resolve", Err: fmt.Errorf("%w under %s", ErrNoFiles, src)}
	}
	log.Info().Int("files", len(files.Files)).Msg("resolved source files")

	// Phase 2: detect format once, against the first file.
	plan, err := BuildPlan(req, files.Files[0], log)
	if err != nil {
		return nil, &PhaseError{Phase: "plan", Err: err}
	}
	log.Info().Str("format", plan.Kind.String()).Bool("expand", plan.Expand).Msg("batch plan ready")

	// Phase 3: reconcile structure, outside the data transaction. What
	// this creates stays created even if the load fails afterwards.
	if err := ensureSchema(ctx, wh, req); err != nil {
		return nil, &PhaseError{Phase: "schema", Err: err}
	}
	if req.CreateTable {
		if err := ensureTable(ctx, wh, req, plan); err != nil {
			return nil, &PhaseError{Phase: "schema", Err: err}
		}
	}
	if req.Audit {
		if err := ensureAuditTable(ctx, wh, req.Schema); err != nil {
			return nil, &PhaseError{Phase: "schema", Err: err}
		}
	}

	// Phase 4: transient staging table, named uniquely per invocation.
	stage := stageName(loadID)
	if err := wh.CreateStage(ctx, stage); err != nil {
		return nil, &PhaseError{Phase: "stage", Err: err}
	}

	// Phase 5: the data transaction. Strategy mutation, most-recent flip,
	// and every file's copy commit or roll back together.
	tx, err := wh.Begin(ctx)
	if err != nil {
		return nil, &PhaseError{Phase: "copy", Err: err}
	}

	rows, deleted, err := copyBatch(ctx, tx, log, req, plan, stage, files.Files)
	if err == nil {
		err = tx.Commit(ctx)
		if err != nil {
			err = &PhaseError{Phase: "copy", Err: fmt.Errorf("commit: %w", err)}
		}
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		log.Warn().Msg("transaction rolled back")
		if req.Audit {
			if auditErr := writeAudit(ctx, wh, req, loadID, 0, int64(len(files.Files)), 0, "failed", err.Error()); auditErr != nil {
				log.Warn().Err(auditErr).Msg("failed to record audit row for failed load")
			}
		}
		return nil, err
	}
	log.Info().Int64("rows", rows).Msg("transaction committed")

	// Phase 6: grants, after commit. A grant failure propagates but the
	// committed data stays committed.
	if len(req.Grants) > 0 {
		if err := applyGrants(ctx, wh, log, req); err != nil {
			return nil, &PhaseError{Phase: "grant", Err: err}
		}
	}

	// Phase 7: audit the success.
	result := &Result{
		Rows:     rows,
		Files:    len(files.Files),
		Deleted:  deleted,
		Grants:   req.Grants,
		Duration: time.Since(start),
	}
	if req.Audit {
		if err := writeAudit(ctx, wh, req, loadID, rows, int64(result.Files), deleted, "success", ""); err != nil {
			return nil, &PhaseError{Phase: "audit", Err: err}
		}
		result.LoadID = loadID.String()
		log.Info().Str("load_id", result.LoadID).Msg("audit logged")
	}

	log.Info().
		Int64("rows", result.Rows).
		Int("files", result.Files).
		Int64("deleted", result.Deleted).
		Str("duration", result.Duration.String()).
		Msg("load complete")
	return result, nil
}

// copyBatch runs everything scoped to the data transaction: the pre-load
// mutation, the most-recent flip, and the per-file stage+copy loop in
// enumeration order.
func copyBatch(ctx context.Context, tx *warehouse.Tx, log zerolog.Logger, req *Request, plan *Plan, stage string, files []source.File) (rows, deleted int64, err error) {
	deleted, err = applyStrategy(ctx, tx, req)
	if err != nil {
		return 0, 0, &PhaseError{Phase: "strategy", Err: err}
	}
	if deleted > 0 {
		log.Info().Int64("rows", deleted).Str("strategy", req.Strategy.String()).Msg("removed existing rows")
	}

	flipped, err := markNotRecent(ctx, tx, req)
	if err != nil {
		return 0, 0, &PhaseError{Phase: "strategy", Err: err}
	}
	if flipped > 0 {
		log.Info().Int64("rows", flipped).Msg("marked existing rows as not most recent")
	}

	opts := plan.StageOptions()
	for i, f := range files {
		// Display names can collide across subdirectories; the staging key
		// must not.
		key := fmt.Sprintf("%04d/%s", i, f.Name)

		staged, err := tx.Stage(ctx, stage, f.Path, key, opts)
		if err != nil {
			return 0, 0, &PhaseError{Phase: "stage", Err: err}
		}

		n, err := tx.BulkCopy(ctx, stage, key, req.Qualified(), plan.Mapping(req, f.Name))
		if err != nil {
			return 0, 0, &PhaseError{Phase: "copy", Err: err}
		}
		rows += n
		log.Info().Str("file", f.Name).Int64("staged", staged).Int64("rows", n).Msg("file loaded")
	}
	return rows, deleted, nil
}

// applyGrants grants USAGE on the schema and SELECT on the table to each
// requested role, after the data transaction has committed.
func applyGrants(ctx context.Context, wh *warehouse.Client, log zerolog.Logger, req *Request) error {
	for _, role := range req.Grants {
		if _, err := wh.Exec(ctx, fmt.Sprintf(
			"GRANT USAGE ON SCHEMA %s TO %s",
			warehouse.Ident(req.Schema), warehouse.Ident(role),
		)); err != nil {
			return fmt.Errorf("grant usage on %s to %s: %w", req.Schema, role, err)
		}
		if _, err := wh.Exec(ctx, fmt.Sprintf(
			"GRANT SELECT ON TABLE %s TO %s",
			req.Qualified(), warehouse.Ident(role),
		)); err != nil {
			return fmt.Errorf("grant select to %s: %w", role, err)
		}
		log.Info().Str("role", role).Msg("granted SELECT")
	}
	return nil
}

// stageName derives the unique staging table name for one invocation.
func stageName(loadID uuid.UUID) string {
	short := strings.ReplaceAll(loadID.String(), "-", "")[:12]
	return fmt.Sprintf("dcx_stage_%s_%s", time.Now().UTC().Format("20060102_150405"), short)
}
