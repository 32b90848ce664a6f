// pkg/audit/audit.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/connector"
	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

const (
	auditSchema = "public"
	auditTable  = "ingest_anomalies"
)

var auditColumns = []string{
	"run_id", "batch_id", "source", "kind", "well_id", "well_name", "row_index",
	"column_name", "kept_value", "discarded_value", "detail", "detected_at",
}

// Recorder persists data quality anomalies to the ingest_anomalies table
type Recorder struct {
	pg        *connector.PostgresConnector
	logger    *zap.Logger
	runID     string
	batchSize int
}

// NewRecorder creates a Recorder for one job run and ensures the audit table exists
func NewRecorder(ctx context.Context, pg *connector.PostgresConnector, runID string, logger *zap.Logger) (*Recorder, error) {
	if pg == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if runID == "" {
		return nil, errors.New("run ID cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{
		pg:     pg,
		logger: logger.Named("audit"),
		runID:  runID,
	}

	if err := r.setupAuditTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup audit table: %w", err)
	}

	return r, nil
}

// WithBatchSize sets the number of anomalies per INSERT statement; 0 keeps the connector default
func (r *Recorder) WithBatchSize(batchSize int) *Recorder {
	r.batchSize = batchSize
	return r
}

// setupAuditTable ensures the ingest_anomalies table exists
func (r *Recorder) setupAuditTable(ctx context.Context) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS public.ingest_anomalies (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			batch_id TEXT NOT NULL,
			source TEXT NOT NULL,
			kind TEXT NOT NULL,
			well_id INTEGER,
			well_name TEXT,
			row_index INTEGER,
			column_name TEXT,
			kept_value DOUBLE PRECISION,
			discarded_value DOUBLE PRECISION,
			detail TEXT NOT NULL,
			detected_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`
	if _, err := r.pg.ExecWithTimeout(ctx, createTableSQL, 10*time.Second); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	r.logger.Debug("Ensured ingest_anomalies table exists")
	return nil
}

// Record inserts anomalies in a single transaction
func (r *Recorder) Record(ctx context.Context, anomalies []model.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	inserted, err := r.pg.BatchInsert(ctx, auditSchema, auditTable, auditColumns, rows(r.runID, anomalies), r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to record anomalies: %w", err)
	}

	r.logger.Info("Recorded anomalies",
		zap.String("run", r.runID),
		zap.Int64("count", inserted))
	return nil
}

func rows(runID string, anomalies []model.Anomaly) [][]interface{} {
	out := make([][]interface{}, len(anomalies))
	for i, a := range anomalies {
		detectedAt := a.DetectedAt
		if detectedAt.IsZero() {
			detectedAt = time.Now()
		}
		out[i] = []interface{}{
			runID,
			a.BatchID,
			a.Source,
			string(a.Kind),
			nullableInt(a.WellID, a.WellID > 0),
			nullableString(a.WellKey.Name),
			nullableInt(a.Row, a.Row >= 0),
			nullableString(a.Column),
			converter.ValueForPostgres(a.KeptValue),
			converter.ValueForPostgres(a.Discarded),
			a.Detail,
			detectedAt.UTC(),
		}
	}
	return out
}

func nullableInt(v int, valid bool) interface{} {
	if !valid {
		return nil
	}
	return int64(v)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
