// pkg/ingest/runner.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/audit"
	"github.com/David-Botos/texture-ingress/pkg/config"
	"github.com/David-Botos/texture-ingress/pkg/connector"
	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/source"
	"github.com/David-Botos/texture-ingress/pkg/t2p"
	"github.com/David-Botos/texture-ingress/pkg/welllog"
)

// Stages reported in error records
const (
	StageOpen    = "open"
	StageLoad    = "load"
	StageAdd     = "add"
	StageAudit   = "audit"
	StageWrite   = "write"
	StageVerify  = "verify"
	StageWellLog = "well_log"
	StageControl = "control"
	StageExport  = "export"
)

// SourceOpener builds the source a job entry describes
type SourceOpener func(ctx context.Context, spec config.SourceSpec) (source.Source, error)

// Summary is the outcome of one run
type Summary struct {
	RunID          string
	Job            string
	OutputPath     string
	WellLogPath    string
	ControlPaths   []string // control file, then its PEST template when one was written
	Wells          int
	Intervals      int
	Anomalies      int
	SourcesRead    int
	SkippedSources []string
	ExportedRows   int64
	Verification   *VerificationReport
	Metrics        *Metrics
	Errors         map[ErrorCategory]int
}

// Runner executes ingestion jobs: sources in order into one dataset, then the output file,
// its verification and the optional PostgreSQL export.
type Runner struct {
	cfg           *config.Config
	conns         *connector.ConnectorFactory
	logger        *zap.Logger
	sourceTimeout time.Duration
	openSource    SourceOpener
}

// NewRunner creates a runner. conns may be nil for jobs that only use CSV sources.
func NewRunner(cfg *config.Config, conns *connector.ConnectorFactory, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:           cfg,
		conns:         conns,
		logger:        logger.Named("ingest"),
		sourceTimeout: 10 * time.Minute,
	}
	r.openSource = func(ctx context.Context, spec config.SourceSpec) (source.Source, error) {
		return source.New(ctx, spec, r.conns, r.sourceTimeout, r.logger)
	}
	return r
}

// WithSourceTimeout sets the timeout for database source queries
func (r *Runner) WithSourceTimeout(timeout time.Duration) *Runner {
	r.sourceTimeout = timeout
	return r
}

// WithSourceOpener replaces the default source construction
func (r *Runner) WithSourceOpener(open SourceOpener) *Runner {
	r.openSource = open
	return r
}

// run carries the state of one Run call
type run struct {
	*Runner
	id       string
	job      *config.Job
	logger   *zap.Logger
	metrics  *Metrics
	handler  *ErrorHandler
	data     *dataset.Dataset
	recorder *audit.Recorder
	summary  *Summary
}

// Run executes a job. For a non-nil job the summary is always returned; on error it describes
// the work done before the run stopped.
func (r *Runner) Run(ctx context.Context, job *config.Job) (*Summary, error) {
	if job == nil {
		return nil, errors.New("job cannot be nil")
	}

	id := uuid.New().String()
	logger := r.logger.With(zap.String("run", id), zap.String("job", job.Name))

	st := &run{
		Runner:  r,
		id:      id,
		job:     job,
		logger:  logger,
		metrics: NewMetrics(logger),
		handler: NewErrorHandler(logger, job.ContinueOnError),
		summary: &Summary{RunID: id, Job: job.Name, OutputPath: job.Output.Path},
	}
	st.summary.Metrics = st.metrics

	logger.Info("Starting ingest run",
		zap.Int("sources", len(job.Sources)),
		zap.Strings("classes", job.Classes),
		zap.String("output", job.Output.Path),
		zap.Bool("audit", job.Audit))

	err := st.execute(ctx)

	st.metrics.Complete()
	st.summary.Errors = st.handler.GetErrorSummary()
	st.summary.SkippedSources = st.metrics.SkippedSources()
	if st.data != nil {
		st.summary.Wells = st.data.WellCount()
		st.summary.Intervals = st.data.Len()
		st.summary.Anomalies = len(st.data.Anomalies())
	}

	if err != nil {
		logger.Error("Ingest run failed", zap.Error(err))
		return st.summary, err
	}

	logger.Info("Ingest run completed",
		zap.Int("wells", st.summary.Wells),
		zap.Int("intervals", st.summary.Intervals),
		zap.Int("anomalies", st.summary.Anomalies),
		zap.Strings("skipped", st.summary.SkippedSources),
		zap.Duration("duration", st.metrics.Duration()))

	return st.summary, nil
}

func (st *run) execute(ctx context.Context) error {
	d, err := dataset.NewWithConfig(st.job.Classes, st.logger, st.job.Dataset, nil)
	if err != nil {
		return st.fail(ErrorCategoryCritical, "", "", fmt.Errorf("invalid dataset settings: %w", err))
	}
	st.data = d

	if st.job.Audit {
		if err := st.openAudit(ctx); err != nil {
			return err
		}
	}

	for _, spec := range st.job.Sources {
		if err := ctx.Err(); err != nil {
			return st.fail(ErrorCategoryCritical, spec.Name, StageOpen, err)
		}
		if err := st.ingestSource(ctx, spec); err != nil {
			return err
		}
	}

	return st.writeOutput(ctx)
}

func (st *run) openAudit(ctx context.Context) error {
	if st.conns == nil {
		return st.fail(ErrorCategoryConnection, "", StageAudit, errors.New("audit requires a PostgreSQL connection"))
	}
	pg, err := st.conns.Postgres(ctx)
	if err != nil {
		return st.fail(ErrorCategoryConnection, "", StageAudit, err)
	}
	recorder, err := audit.NewRecorder(ctx, pg, st.id, st.logger)
	if err != nil {
		return st.fail(ErrorCategoryOutput, "", StageAudit, err)
	}
	st.recorder = recorder.WithBatchSize(st.insertBatchSize())
	return nil
}

func (st *run) insertBatchSize() int {
	if st.cfg == nil {
		return 0
	}
	return st.cfg.InsertBatchSize
}

// ingestSource loads one source into the dataset. It returns an error only when the run
// has to stop; skipped sources are recorded in the metrics.
func (st *run) ingestSource(ctx context.Context, spec config.SourceSpec) error {
	sm := st.metrics.StartSource(spec.Name, string(spec.Kind))
	logger := st.logger.With(zap.String("source", spec.Name))

	skipOrAbort := func(fallback ErrorCategory, stage string, err error) error {
		category := st.handler.CategorizeError(err, fallback)
		if ctx.Err() != nil {
			category = ErrorCategoryCritical
		}
		record := NewErrorRecord(err, category).WithSource(spec.Name, stage)
		st.metrics.RecordError(category)
		if st.handler.HandleError(record) == ActionSkipSource {
			st.metrics.RecordSkippedSource(sm, err)
			return nil
		}
		return fmt.Errorf("source %s: %w", spec.Name, err)
	}

	src, err := st.openSource(ctx, spec)
	if err != nil {
		fallback := ErrorCategorySource
		if spec.Kind != config.SourceCSV {
			fallback = ErrorCategoryConnection
		}
		return skipOrAbort(fallback, StageOpen, err)
	}

	loadStart := time.Now()
	batch, err := src.Load(ctx)
	if err != nil {
		return skipOrAbort(ErrorCategorySource, StageLoad, err)
	}
	st.metrics.RecordLoad(sm, batch.Len(), time.Since(loadStart))
	if batch.Source == "" {
		batch.Source = spec.Name
	}

	addStart := time.Now()
	result, err := st.data.AddWells(batch, spec.Columns, spec.Add)
	if err != nil {
		return skipOrAbort(ErrorCategoryValidation, StageAdd, err)
	}
	st.metrics.RecordAdd(sm, result, time.Since(addStart))
	st.summary.SourcesRead++

	logger.Info("Source ingested",
		zap.String("batch", result.BatchID),
		zap.Int("rows", result.RowsRead),
		zap.Int("wellsAdded", result.WellsAdded),
		zap.Int("placeholders", result.Placeholders),
		zap.Int("anomalies", len(result.Anomalies)))

	if st.recorder != nil && len(result.Anomalies) > 0 {
		if err := st.recorder.Record(ctx, result.Anomalies); err != nil {
			return st.fail(ErrorCategoryOutput, spec.Name, StageAudit, err)
		}
		st.metrics.RecordAudit(len(result.Anomalies))
	}

	return nil
}

func (st *run) writeOutput(ctx context.Context) error {
	out := st.job.Output

	if err := st.data.WriteFile(out.Path, out.Write); err != nil {
		return st.fail(ErrorCategoryOutput, "", StageWrite, err)
	}

	report, err := NewVerifier(st.logger).VerifyOutput(
		out.Path, out.Write, st.data.Classes(), st.data.Config().HSULayers, st.data.Len())
	st.summary.Verification = report
	if report != nil {
		st.metrics.RecordOutput(out.Path, report.Bytes, st.data.WellCount(), st.data.Len())
	}
	if err != nil {
		return st.fail(ErrorCategoryOutput, "", StageVerify, err)
	}

	if out.WellLog != nil {
		if err := st.writeWellLog(out.WellLog, out.Write); err != nil {
			return st.fail(ErrorCategoryOutput, "", StageWellLog, err)
		}
	}
	if out.Control != nil {
		if err := st.writeControl(out.Control); err != nil {
			return st.fail(ErrorCategoryOutput, "", StageControl, err)
		}
	}

	if out.PostgresTable == "" {
		return nil
	}
	if st.conns == nil {
		return st.fail(ErrorCategoryConnection, "", StageExport, errors.New("export requires a PostgreSQL connection"))
	}
	pg, err := st.conns.Postgres(ctx)
	if err != nil {
		return st.fail(ErrorCategoryConnection, "", StageExport, err)
	}

	rows, err := NewExporter(pg, st.insertBatchSize(), st.logger).Export(ctx, st.data, out.PostgresSchema, out.PostgresTable)
	if err != nil {
		return st.fail(ErrorCategoryOutput, "", StageExport, err)
	}
	st.summary.ExportedRows = rows
	st.metrics.RecordExport(rows)

	return nil
}

func (st *run) writeWellLog(spec *config.WellLogSpec, opts dataset.WriteOptions) error {
	logs, err := welllog.FromDataset(st.data, spec.Class)
	if err != nil {
		return err
	}
	if err := logs.WriteFile(spec.Path, opts); err != nil {
		return err
	}
	st.summary.WellLogPath = spec.Path
	st.logger.Info("Wrote well log",
		zap.String("path", spec.Path),
		zap.String("class", spec.Class),
		zap.Int("points", len(logs.Points())))
	return nil
}

func (st *run) writeControl(spec *config.ControlSpec) error {
	if err := spec.File.WriteFile(spec.Path, t2p.WriteOptions{}); err != nil {
		return err
	}
	st.summary.ControlPaths = append(st.summary.ControlPaths, spec.Path)

	if spec.TemplatePath == "" {
		return nil
	}
	opts := t2p.WriteOptions{Template: true, Delimiter: spec.Delimiter}
	if err := spec.File.WriteFile(spec.TemplatePath, opts); err != nil {
		return err
	}
	st.summary.ControlPaths = append(st.summary.ControlPaths, spec.TemplatePath)
	st.logger.Info("Wrote control file template",
		zap.String("path", spec.TemplatePath),
		zap.Strings("estimated", spec.File.Estimated()))
	return nil
}

// fail records an error that stops the run
func (st *run) fail(category ErrorCategory, sourceName, stage string, err error) error {
	record := NewErrorRecord(err, category).WithSource(sourceName, stage)
	st.handler.RecordError(record)
	st.metrics.RecordError(category)
	if stage == "" {
		return err
	}
	return fmt.Errorf("%s: %w", stage, err)
}
