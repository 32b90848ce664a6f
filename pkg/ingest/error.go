// pkg/ingest/error.go
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
)

// Action defines the recommended action after an error
type Action int

const (
	// ActionContinue indicates processing should continue despite the error
	ActionContinue Action = iota
	// ActionSkipSource drops the failing source and moves on to the next one
	ActionSkipSource
	// ActionAbort stops the whole run
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionSkipSource:
		return "SkipSource"
	case ActionAbort:
		return "Abort"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// ErrorCategory defines categories of errors during a run
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	// ErrorCategorySource covers unreadable files and failed queries
	ErrorCategorySource
	// ErrorCategoryValidation covers batches rejected by the dataset
	ErrorCategoryValidation
	// ErrorCategoryConnection covers database connections that could not be opened
	ErrorCategoryConnection
	// ErrorCategoryOutput covers the output file, its verification, the export and the audit trail
	ErrorCategoryOutput
	// ErrorCategoryCritical covers cancellation and invalid jobs
	ErrorCategoryCritical
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategorySource:
		return "Source"
	case ErrorCategoryValidation:
		return "Validation"
	case ErrorCategoryConnection:
		return "Connection"
	case ErrorCategoryOutput:
		return "Output"
	case ErrorCategoryCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// ErrorRecord represents a single error during a run
type ErrorRecord struct {
	Category  ErrorCategory
	Source    string
	Stage     string
	Row       int // -1 when the error is not tied to an input row
	Error     error
	Message   string
	Timestamp time.Time
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:  category,
		Row:       -1,
		Error:     err,
		Timestamp: time.Now(),
	}

	if err != nil {
		record.Message = err.Error()
		var rowErr *dataset.RowError
		if errors.As(err, &rowErr) {
			record.Row = rowErr.Row
		}
	}

	return record
}

// WithSource adds the source name and the stage that failed
func (r ErrorRecord) WithSource(name, stage string) ErrorRecord {
	r.Source = name
	r.Stage = stage
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Source != "" {
		sb.WriteString(fmt.Sprintf("Source: %s ", r.Source))
	}
	if r.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", r.Stage))
	}
	if r.Row >= 0 {
		sb.WriteString(fmt.Sprintf("Row: %d ", r.Row))
	}

	if r.Error != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Error.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	return strings.TrimSpace(sb.String())
}

// ErrorHandler decides what a run does after an error and keeps counts for the report
type ErrorHandler struct {
	logger          *zap.Logger
	continueOnError bool
	errorCounts     map[ErrorCategory]int
	sampleErrors    map[ErrorCategory][]ErrorRecord
	mu              sync.Mutex
	maxSamples      int
}

// NewErrorHandler creates a new error handler. With continueOnError, a failing source is
// skipped instead of aborting the run.
func NewErrorHandler(logger *zap.Logger, continueOnError bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:          logger,
		continueOnError: continueOnError,
		errorCounts:     make(map[ErrorCategory]int),
		sampleErrors:    make(map[ErrorCategory][]ErrorRecord),
		maxSamples:      5,
	}
}

// CategorizeError maps dataset and output errors to their category; anything else gets fallback
func (eh *ErrorHandler) CategorizeError(err error, fallback ErrorCategory) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var rowErr *dataset.RowError
	var category ErrorCategory

	switch {
	case errors.Is(err, dataset.ErrWriteFailure),
		errors.Is(err, ErrVerificationFailed):
		category = ErrorCategoryOutput

	case errors.As(err, &rowErr),
		errors.Is(err, dataset.ErrMissingColumn),
		errors.Is(err, dataset.ErrUnknownClass),
		errors.Is(err, dataset.ErrUnrecognizedColumn),
		errors.Is(err, dataset.ErrConflictingElevation):
		category = ErrorCategoryValidation

	default:
		category = fallback
	}

	eh.logger.Debug("Categorized error",
		zap.String("error", err.Error()),
		zap.String("category", category.String()))

	return category
}

// HandleError records an error and determines the action
func (eh *ErrorHandler) HandleError(record ErrorRecord) Action {
	eh.RecordError(record)

	switch record.Category {
	case ErrorCategoryNone:
		return ActionContinue

	case ErrorCategorySource, ErrorCategoryValidation, ErrorCategoryConnection:
		if eh.continueOnError {
			eh.logger.Warn("Skipping source",
				zap.String("source", record.Source),
				zap.String("category", record.Category.String()),
				zap.String("error", record.Message))
			return ActionSkipSource
		}
		return ActionAbort

	default:
		eh.logger.Error("Aborting run",
			zap.String("category", record.Category.String()),
			zap.String("error", record.Message))
		return ActionAbort
	}
}

// RecordError saves an error occurrence
func (eh *ErrorHandler) RecordError(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++

	samples := eh.sampleErrors[record.Category]
	if len(samples) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(samples, record)
	}

	logLevel := zap.WarnLevel
	if record.Category >= ErrorCategoryOutput {
		logLevel = zap.ErrorLevel
	}

	eh.logger.Log(logLevel, "Ingest error",
		zap.String("category", record.Category.String()),
		zap.String("source", record.Source),
		zap.String("stage", record.Stage),
		zap.Int("row", record.Row),
		zap.String("error", record.Message))
}

// GetErrorSummary returns the error counts by category
func (eh *ErrorHandler) GetErrorSummary() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	summary := make(map[ErrorCategory]int, len(eh.errorCounts))
	for category, count := range eh.errorCounts {
		summary[category] = count
	}

	return summary
}

// GetErrorSamples returns sample errors for each category
func (eh *ErrorHandler) GetErrorSamples() map[ErrorCategory][]ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make(map[ErrorCategory][]ErrorRecord, len(eh.sampleErrors))
	for category, records := range eh.sampleErrors {
		samples[category] = append([]ErrorRecord(nil), records...)
	}

	return samples
}
