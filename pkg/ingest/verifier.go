// pkg/ingest/verifier.go
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
)

// ErrVerificationFailed is returned when a written file does not match the dataset
var ErrVerificationFailed = errors.New("output verification failed")

// VerificationReport contains the results of an output file check
type VerificationReport struct {
	Path             string
	Layout           dataset.Layout
	VerificationTime time.Time
	ExpectedLines    int
	ActualLines      int
	LineCountMatches bool
	ExpectedColumns  int
	HeaderMatches    bool
	BadLines         []int // 1-based line numbers of records with the wrong column count
	RecordsParsed    int
	Wells            int
	Bytes            int64
	Duration         time.Duration
}

// OK reports whether every check passed
func (r *VerificationReport) OK() bool {
	return r.LineCountMatches && r.HeaderMatches && len(r.BadLines) == 0 && r.RecordsParsed == r.ExpectedLines
}

// Verifier re-reads written dataset files
type Verifier struct {
	logger      *zap.Logger
	maxBadLines int
}

// NewVerifier creates a new verifier
func NewVerifier(logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		logger:      logger.Named("verifier"),
		maxBadLines: 20,
	}
}

// VerifyOutput checks that path holds expectedLines data lines, each with the column count of
// the layout in opts, and that every line parses back into a record.
func (v *Verifier) VerifyOutput(
	path string,
	opts dataset.WriteOptions,
	classes []string,
	layers int,
	expectedLines int,
) (*VerificationReport, error) {
	start := time.Now()
	writer := dataset.NewFileWriter(classes, layers, opts)
	columns := writer.Columns()
	sep := opts.Separator
	if sep == "" {
		sep = dataset.DefaultWriteOptions().Separator
	}

	report := &VerificationReport{
		Path:             path,
		Layout:           opts.Layout,
		VerificationTime: start,
		ExpectedLines:    expectedLines,
		ExpectedColumns:  len(columns),
		HeaderMatches:    true,
	}

	v.logger.Info("Verifying output",
		zap.String("path", path),
		zap.String("layout", opts.Layout.String()),
		zap.Int("expectedLines", expectedLines))

	comma, err := dataset.ParseSeparator(sep)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	if err := v.scanRecords(path, comma, opts.Header, columns, report); err != nil {
		return report, err
	}

	f, err := os.Open(path)
	if err != nil {
		return report, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	na := opts.NAToken
	if na == "" {
		na = dataset.DefaultWriteOptions().NAToken
	}
	records, err := dataset.ReadRecords(f, classes, layers, dataset.ReadOptions{
		Layout:    opts.Layout,
		Separator: sep,
		Header:    opts.Header,
		NATokens:  []string{na},
	})
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	report.RecordsParsed = len(records)

	wells := make(map[int]struct{})
	for _, rec := range records {
		wells[rec.Well.ID] = struct{}{}
	}
	report.Wells = len(wells)
	report.Duration = time.Since(start)

	if !report.OK() {
		v.logger.Warn("Output verification failed",
			zap.String("path", path),
			zap.Int("expectedLines", report.ExpectedLines),
			zap.Int("actualLines", report.ActualLines),
			zap.Bool("headerMatches", report.HeaderMatches),
			zap.Ints("badLines", report.BadLines))
		return report, fmt.Errorf("%w: %s has %d data lines, expected %d (%d with a bad column count)",
			ErrVerificationFailed, path, report.ActualLines, report.ExpectedLines, len(report.BadLines))
	}

	v.logger.Info("Output verification successful",
		zap.String("path", path),
		zap.Int("lines", report.ActualLines),
		zap.Int("wells", report.Wells),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// scanRecords counts data records and checks each one's column count
func (v *Verifier) scanRecords(path string, comma rune, header bool, columns []string, report *VerificationReport) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		report.Bytes = info.Size()
	}

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	record := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrVerificationFailed, path, err)
		}
		record++

		if record == 1 && header {
			report.HeaderMatches = slices.Equal(fields, columns)
			continue
		}

		report.ActualLines++
		if len(fields) != len(columns) && len(report.BadLines) < v.maxBadLines {
			line, _ := reader.FieldPos(0)
			report.BadLines = append(report.BadLines, line)
		}
	}

	report.LineCountMatches = report.ActualLines == report.ExpectedLines
	return nil
}
