package warehouse

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
)

// Line values above this size are rejected upstream by pre-flight checks;
// the scanner buffer just needs to accommodate them.
const maxLineBuffer = 16*1024*1024 + 1

const stageBatchSize = 1024

// StageOptions controls how a file is parsed into staging rows.
type StageOptions struct {
	// Delimiter is the field separator; 0 means single-column (each whole
	// line becomes one field).
	Delimiter rune
	// SkipHeader is the number of leading lines/records to discard.
	SkipHeader int
	// FieldCount, when positive, is the exact number of fields every
	// delimited record must have. A mismatch aborts the file.
	FieldCount int
}

// Tx is one data transaction. Strategy mutations, staging, and bulk
// copies all run inside it; Commit or Rollback ends it.
type Tx struct {
	tx pgx.Tx
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Count runs a single-value count query inside the transaction.
func (t *Tx) Count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Commit commits the data transaction.
func (t *Tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback rolls the data transaction back. Safe to call after Commit.
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// Stage parses a local file and COPY-loads its rows into the staging
// table, tagged with displayName. Any malformed record aborts the whole
// file. Returns the number of rows staged.
func (t *Tx) Stage(ctx context.Context, stage, path, displayName string, opts StageOptions) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", displayName, err)
	}
	defer in.Close()

	ch := make(chan *stagedRow, stageBatchSize)
	errCh := make(chan error, 1)

	// Producer: parse file → push staging rows to channel.
	go func() {
		defer close(ch)
		if opts.Delimiter == 0 {
			errCh <- produceLines(ctx, in, displayName, opts.SkipHeader, ch)
		} else {
			errCh <- produceRecords(ctx, in, displayName, opts, ch)
		}
	}()

	// Consumer: COPY from channel into the staging table.
	rows, copyErr := t.tx.CopyFrom(ctx,
		pgx.Identifier{stage},
		[]string{"file_name", "line_no", "fields"},
		newRowSource(ch),
	)

	// If the COPY died early the producer may still be blocked on a send;
	// drain the channel so it can finish and report.
	for range ch {
	}
	if prodErr := <-errCh; prodErr != nil {
		return 0, fmt.Errorf("parse %s: %w", displayName, prodErr)
	}
	if copyErr != nil {
		return 0, fmt.Errorf("stage %s: %w", displayName, copyErr)
	}
	return rows, nil
}

func produceLines(ctx context.Context, in io.Reader, name string, skip int, ch chan<- *stagedRow) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineBuffer)

	var lineNo int64
	for sc.Scan() {
		lineNo++
		if lineNo <= int64(skip) {
			continue
		}
		row := &stagedRow{fileName: name, lineNo: lineNo, fields: []string{sc.Text()}}
		select {
		case ch <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return sc.Err()
}

func produceRecords(ctx context.Context, in io.Reader, name string, opts StageOptions, ch chan<- *stagedRow) error {
	r := csv.NewReader(in)
	r.Comma = opts.Delimiter
	if opts.FieldCount > 0 {
		r.FieldsPerRecord = opts.FieldCount
	} else {
		r.FieldsPerRecord = -1
	}

	var recNo int64
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		recNo++
		if err != nil {
			// Header records are exempt from the field-count contract.
			if recNo <= int64(opts.SkipHeader) && isFieldCountErr(err) {
				continue
			}
			return fmt.Errorf("record %d: %w", recNo, err)
		}
		if recNo <= int64(opts.SkipHeader) {
			continue
		}
		row := &stagedRow{fileName: name, lineNo: recNo, fields: record}
		select {
		case ch <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isFieldCountErr(err error) bool {
	return errors.Is(err, csv.ErrFieldCount)
}
