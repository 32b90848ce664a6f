// pkg/dataset/errors.go
package dataset

import (
	"errors"
	"fmt"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

var (
	// ErrInvalidWellKey is returned for a missing or empty well name or unreadable coordinates
	ErrInvalidWellKey = errors.New("invalid well key")
	// ErrInvalidDepth is returned for a missing, non-numeric or negative depth, or top > bottom
	ErrInvalidDepth = errors.New("invalid depth")
	// ErrInvalidIndex is returned when an explicit interval index is not an integer
	ErrInvalidIndex = errors.New("invalid interval index")
	// ErrInvalidValue is returned for non-numeric class, elevation or HSU cells
	ErrInvalidValue = errors.New("invalid value")
	// ErrMissingColumn is returned when a mapped column is absent from the batch header
	ErrMissingColumn = errors.New("missing column")
	// ErrUnknownClass is returned when a class mapping names a class the dataset does not have
	ErrUnknownClass = errors.New("unknown texture class")
	// ErrUnrecognizedColumn is returned in strict mode for batch columns nothing consumes
	ErrUnrecognizedColumn = errors.New("unrecognized column")
	// ErrConflictingElevation is returned only under ElevationStrict
	ErrConflictingElevation = errors.New("conflicting elevation")
	// ErrWriteFailure wraps I/O errors during serialization
	ErrWriteFailure = errors.New("write failure")
)

// RowError locates a structural error in the input batch
type RowError struct {
	Row int
	Key model.WellKey
	Err error
}

func (e *RowError) Error() string {
	if e.Key.Name == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d (well %s): %v", e.Row, e.Key, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func rowError(row int, key model.WellKey, sentinel error, format string, args ...interface{}) *RowError {
	return &RowError{
		Row: row,
		Key: key,
		Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
