package job

import (
	"fmt"

	"aviation/internal/storage"
)

// ReadError reports that the input table could not be read.
type ReadError struct {
	Dataset string
	Table   storage.TableID
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: read %s: %v", e.Dataset, e.Table, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// TransformError reports that the rule set rejected the input.
type TransformError struct {
	Dataset string
	Err     error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: transform: %v", e.Dataset, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// WriteError reports that the output table could not be replaced. The
// previous contents of the output table are still in place.
type WriteError struct {
	Dataset string
	Table   storage.TableID
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: write %s: %v", e.Dataset, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// AuditError reports that the audit record could not be appended. It never
// fails a run on its own; see Result.AuditErr.
type AuditError struct {
	Dataset string
	Status  string
	Err     error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("%s: audit %s: %v", e.Dataset, e.Status, e.Err)
}

func (e *AuditError) Unwrap() error { return e.Err }
