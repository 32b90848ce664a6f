// pkg/source/csv.go
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// CSVSource reads a delimited text file whose first line is the header
type CSVSource struct {
	name      string
	path      string
	delimiter rune
	logger    *zap.Logger
}

// NewCSVSource creates a CSV source. A zero delimiter means comma.
func NewCSVSource(name, path string, delimiter rune, logger *zap.Logger) *CSVSource {
	if delimiter == 0 {
		delimiter = ','
	}
	if name == "" {
		name = path
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{
		name:      name,
		path:      path,
		delimiter: delimiter,
		logger:    logger.Named("csv-source"),
	}
}

// Name returns the source name
func (s *CSVSource) Name() string {
	return s.name
}

// Load reads the file into a batch. Cells stay strings; short rows are padded with nil.
func (s *CSVSource) Load(ctx context.Context) (*model.Batch, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	return s.read(ctx, f)
}

func (s *CSVSource) read(ctx context.Context, r io.Reader) (*model.Batch, error) {
	reader := csv.NewReader(r)
	reader.Comma = s.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header from %s: file is empty", s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header from %s: %w", s.path, err)
	}

	columns, err := processHeader(header)
	if err != nil {
		return nil, fmt.Errorf("processing header from %s: %w", s.path, err)
	}

	batch := model.NewBatch(s.name, columns)
	extraColumnsCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) > len(columns) {
			extraColumnsCount++
		}

		values := make([]interface{}, len(record))
		for i, v := range record {
			values[i] = v
		}
		batch.Append(values...)
	}

	if extraColumnsCount > 0 {
		s.logger.Warn("Ignoring cells beyond the header",
			zap.String("path", s.path),
			zap.Int("rows", extraColumnsCount))
	}

	s.logger.Debug("Loaded CSV batch",
		zap.String("path", s.path),
		zap.Int("columns", len(columns)),
		zap.Int("rows", batch.Len()))

	return batch, nil
}

func processHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		columns[i] = name
	}
	return columns, nil
}
