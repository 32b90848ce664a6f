// pkg/source/sql.go
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// SQLSource reads a batch from a query or a whole table
type SQLSource struct {
	name    string
	db      *sqlx.DB
	query   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSQLSource creates a source over db. Exactly one of query and table must be set; a
// table may be schema-qualified ("schema.table").
func NewSQLSource(name string, db *sqlx.DB, query, table string, timeout time.Duration, logger *zap.Logger) (*SQLSource, error) {
	query = strings.TrimSpace(query)
	table = strings.TrimSpace(table)
	if (query == "") == (table == "") {
		return nil, errors.New("exactly one of query or table is required")
	}
	if table != "" {
		query = "SELECT * FROM " + quoteTable(table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLSource{
		name:    name,
		db:      db,
		query:   query,
		timeout: timeout,
		logger:  logger.Named("sql-source"),
	}, nil
}

// Name returns the source name
func (s *SQLSource) Name() string {
	return s.name
}

// Query returns the statement the source runs
func (s *SQLSource) Query() string {
	return s.query
}

// Load runs the query and collects every row
func (s *SQLSource) Load(ctx context.Context) (*model.Batch, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := s.db.QueryxContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.name, err)
	}

	batch := model.NewBatch(s.name, columns)
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning row %d of %s: %w", batch.Len(), s.name, err)
		}
		for k, v := range row {
			// drivers hand text back as []byte
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		batch.Rows = append(batch.Rows, model.Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows of %s: %w", s.name, err)
	}

	s.logger.Debug("Loaded SQL batch",
		zap.String("source", s.name),
		zap.Int("columns", len(columns)),
		zap.Int("rows", batch.Len()),
		zap.Duration("duration", time.Since(start)))

	return batch, nil
}

func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}
