package warehouse

import (
	"github.com/jackc/pgx/v5"
)

// stagedRow is one parsed input line bound for the staging table.
type stagedRow struct {
	fileName string
	lineNo   int64
	fields   []string
}

// rowSource implements pgx.CopyFromSource by reading stagedRows from a
// channel. This provides natural backpressure between the file parser and
// the COPY writer.
type rowSource struct {
	ch      <-chan *stagedRow
	current *stagedRow
}

func newRowSource(ch <-chan *stagedRow) *rowSource {
	return &rowSource{ch: ch}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *rowSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in COPY column order.
func (s *rowSource) Values() ([]any, error) {
	return []any{s.current.fileName, s.current.lineNo, s.current.fields}, nil
}

func (s *rowSource) Err() error { return nil }

var _ pgx.CopyFromSource = (*rowSource)(nil)
