package load

import (
	"errors"
	"fmt"
)

// ErrNoFiles signals an empty source; the load never started.
var ErrNoFiles = errors.New("no files found")

// SchemaNotFoundError is returned when the destination schema does not
// exist and schema creation was not requested. It carries the schema name
// so the caller can offer to create it and retry the load once.
type SchemaNotFoundError struct {
	Schema string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema %q does not exist", e.Schema)
}

// PhaseError wraps an error with the pipeline phase where it occurred.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
