package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("buyer not found")
	ErrConflict        = errors.New("buyer was modified by someone else")
	ErrCapacity        = errors.New("import capacity exceeded")
	ErrImportRejected  = errors.New("import rejected")
	ErrTooManyImports  = errors.New("too many concurrent imports")
	ErrArchiveDisabled = errors.New("export archive is not configured")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// CapacityError is returned when an import holds more data rows than allowed.
type CapacityError struct {
	Rows int
	Max  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Max %d rows allowed", e.Max)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

// ImportError lists every rejected row of an import. Nothing was written.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, fmt.Sprintf("row %d: %s", r.Row, r.Message))
	}
	return fmt.Sprintf("import rejected: %d invalid rows (%s)", len(e.Rows), strings.Join(parts, "; "))
}

func (e *ImportError) Is(target error) bool {
	return target == ErrImportRejected
}
