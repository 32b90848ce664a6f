// pkg/ingest/metrics.go
package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

// SourceMetrics tracks what one source contributed to the dataset
type SourceMetrics struct {
	Name           string
	Kind           string
	StartTime      time.Time
	EndTime        time.Time
	LoadDuration   time.Duration
	AddDuration    time.Duration
	RowsRead       int
	IntervalsAdded int
	Placeholders   int
	WellsAdded     int
	WellsTouched   int
	Anomalies      map[model.AnomalyKind]int
	Skipped        bool
	Error          string
}

// Duration returns the time spent on the source
func (sm *SourceMetrics) Duration() time.Duration {
	if sm.EndTime.IsZero() {
		return time.Since(sm.StartTime)
	}
	return sm.EndTime.Sub(sm.StartTime)
}

// AnomalyCount returns the number of anomalies the source produced
func (sm *SourceMetrics) AnomalyCount() int {
	total := 0
	for _, n := range sm.Anomalies {
		total += n
	}
	return total
}

// Metrics tracks a whole ingestion run
type Metrics struct {
	mu             sync.Mutex
	logger         *zap.Logger
	StartTime      time.Time
	EndTime        time.Time
	Sources        []*SourceMetrics
	ErrorCounts    map[ErrorCategory]int
	OutputPath     string
	OutputBytes    int64
	WellsTotal     int
	IntervalsTotal int
	ExportedRows   int64
	AuditedRows    int
}

// NewMetrics creates a new run metrics tracker
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metrics{
		logger:      logger,
		StartTime:   time.Now(),
		ErrorCounts: make(map[ErrorCategory]int),
	}
}

// StartSource begins tracking a source
func (m *Metrics) StartSource(name, kind string) *SourceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm := &SourceMetrics{
		Name:      name,
		Kind:      kind,
		StartTime: time.Now(),
		Anomalies: make(map[model.AnomalyKind]int),
	}
	m.Sources = append(m.Sources, sm)
	return sm
}

// RecordLoad records how long a source took to read and how many rows it returned
func (m *Metrics) RecordLoad(sm *SourceMetrics, rows int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm.RowsRead = rows
	sm.LoadDuration = d
}

// RecordAdd records the outcome of adding a source's batch to the dataset
func (m *Metrics) RecordAdd(sm *SourceMetrics, result *dataset.AddResult, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm.AddDuration = d
	sm.EndTime = time.Now()
	if result == nil {
		return
	}
	sm.RowsRead = result.RowsRead
	sm.IntervalsAdded = result.IntervalsAdded
	sm.Placeholders = result.Placeholders
	sm.WellsAdded = result.WellsAdded
	sm.WellsTouched = result.WellsTouched
	for _, a := range result.Anomalies {
		sm.Anomalies[a.Kind]++
	}

	m.logger.Debug("Source metrics recorded",
		zap.String("source", sm.Name),
		zap.Int("rows", sm.RowsRead),
		zap.Int("intervals", sm.IntervalsAdded),
		zap.Int("placeholders", sm.Placeholders),
		zap.Duration("duration", sm.Duration()))
}

// RecordSkippedSource marks a source as skipped after an error
func (m *Metrics) RecordSkippedSource(sm *SourceMetrics, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm.Skipped = true
	sm.EndTime = time.Now()
	if err != nil {
		sm.Error = err.Error()
	}
}

// RecordError counts an error by category
func (m *Metrics) RecordError(category ErrorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCounts[category]++
}

// RecordOutput records the written file
func (m *Metrics) RecordOutput(path string, bytes int64, wells, intervals int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OutputPath = path
	m.OutputBytes = bytes
	m.WellsTotal = wells
	m.IntervalsTotal = intervals
}

// RecordExport records the rows written to the export table
func (m *Metrics) RecordExport(rows int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExportedRows = rows
}

// RecordAudit adds to the count of anomalies persisted to the audit table
func (m *Metrics) RecordAudit(rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuditedRows += rows
}

// Complete marks the run as finished
func (m *Metrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()

	m.logger.Info("Ingest metrics",
		zap.Duration("duration", m.EndTime.Sub(m.StartTime)),
		zap.Int("sources", len(m.Sources)),
		zap.Int("rowsRead", m.totalRowsRead()),
		zap.Int("wells", m.WellsTotal),
		zap.Int("intervals", m.IntervalsTotal))
}

// Duration returns the run duration so far
func (m *Metrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// TotalRowsRead returns the rows read across every source
func (m *Metrics) TotalRowsRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalRowsRead()
}

func (m *Metrics) totalRowsRead() int {
	total := 0
	for _, sm := range m.Sources {
		total += sm.RowsRead
	}
	return total
}

// AnomalyCounts returns anomalies by kind across every source
func (m *Metrics) AnomalyCounts() map[model.AnomalyKind]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anomalyCounts()
}

func (m *Metrics) anomalyCounts() map[model.AnomalyKind]int {
	counts := make(map[model.AnomalyKind]int)
	for _, sm := range m.Sources {
		for kind, n := range sm.Anomalies {
			counts[kind] += n
		}
	}
	return counts
}

// SkippedSources returns the names of the sources that were dropped
func (m *Metrics) SkippedSources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for _, sm := range m.Sources {
		if sm.Skipped {
			names = append(names, sm.Name)
		}
	}
	return names
}

// CalculateThroughput returns rows read per second
func (m *Metrics) CalculateThroughput() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throughput()
}

func (m *Metrics) throughput() float64 {
	seconds := m.Duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(m.totalRowsRead()) / seconds
}

// formatBytes converts bytes to a human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func sortedKinds(counts map[model.AnomalyKind]int) []model.AnomalyKind {
	kinds := make([]model.AnomalyKind, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Report creates a human-readable metrics report
func (m *Metrics) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	skipped := 0
	for _, sm := range m.Sources {
		if sm.Skipped {
			skipped++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`
Ingest Metrics Report
=====================
Duration:                %s
Sources:                 %d (%d skipped)
Rows Read:               %d
Average Throughput:      %.2f rows/sec

Dataset
-------
Wells:                   %d
Intervals:               %d
Output:                  %s (%s)
`,
		formatDuration(m.Duration()),
		len(m.Sources), skipped,
		m.totalRowsRead(),
		m.throughput(),
		m.WellsTotal,
		m.IntervalsTotal,
		m.OutputPath, formatBytes(m.OutputBytes),
	))
	if m.ExportedRows > 0 {
		sb.WriteString(fmt.Sprintf("Exported Rows:           %d\n", m.ExportedRows))
	}
	if m.AuditedRows > 0 {
		sb.WriteString(fmt.Sprintf("Audited Anomalies:       %d\n", m.AuditedRows))
	}

	sb.WriteString("\nSource Details\n--------------\n")
	for _, sm := range m.Sources {
		if sm.Skipped {
			sb.WriteString(fmt.Sprintf("- %s (%s): skipped, %s\n", sm.Name, sm.Kind, sm.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s (%s): %d rows, %d intervals, %d placeholders, %d new wells, %d wells touched, %d anomalies, %s\n",
			sm.Name, sm.Kind,
			sm.RowsRead,
			sm.IntervalsAdded,
			sm.Placeholders,
			sm.WellsAdded,
			sm.WellsTouched,
			sm.AnomalyCount(),
			formatDuration(sm.Duration())))
	}

	if counts := m.anomalyCounts(); len(counts) > 0 {
		sb.WriteString("\nAnomalies\n---------\n")
		for _, kind := range sortedKinds(counts) {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", kind, counts[kind]))
		}
	}

	if len(m.ErrorCounts) > 0 {
		sb.WriteString("\nErrors\n------\n")
		categories := make([]ErrorCategory, 0, len(m.ErrorCounts))
		for category := range m.ErrorCounts {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", category, m.ErrorCounts[category]))
		}
	}

	return sb.String()
}

type sourceJSON struct {
	Name           string         `json:"name"`
	Kind           string         `json:"kind"`
	Duration       string         `json:"duration"`
	RowsRead       int            `json:"rowsRead"`
	IntervalsAdded int            `json:"intervalsAdded"`
	Placeholders   int            `json:"placeholders"`
	WellsAdded     int            `json:"wellsAdded"`
	WellsTouched   int            `json:"wellsTouched"`
	Anomalies      map[string]int `json:"anomalies,omitempty"`
	Skipped        bool           `json:"skipped,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ToJSON serializes metrics to JSON
func (m *Metrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make([]sourceJSON, len(m.Sources))
	for i, sm := range m.Sources {
		var anomalies map[string]int
		if len(sm.Anomalies) > 0 {
			anomalies = make(map[string]int, len(sm.Anomalies))
			for kind, n := range sm.Anomalies {
				anomalies[string(kind)] = n
			}
		}
		sources[i] = sourceJSON{
			Name:           sm.Name,
			Kind:           sm.Kind,
			Duration:       formatDuration(sm.Duration()),
			RowsRead:       sm.RowsRead,
			IntervalsAdded: sm.IntervalsAdded,
			Placeholders:   sm.Placeholders,
			WellsAdded:     sm.WellsAdded,
			WellsTouched:   sm.WellsTouched,
			Anomalies:      anomalies,
			Skipped:        sm.Skipped,
			Error:          sm.Error,
		}
	}

	errorCounts := make(map[string]int, len(m.ErrorCounts))
	for category, n := range m.ErrorCounts {
		errorCounts[category.String()] = n
	}

	return json.Marshal(struct {
		Duration     string         `json:"duration"`
		RowsRead     int            `json:"rowsRead"`
		Wells        int            `json:"wells"`
		Intervals    int            `json:"intervals"`
		OutputPath   string         `json:"outputPath"`
		OutputBytes  int64          `json:"outputBytes"`
		ExportedRows int64          `json:"exportedRows"`
		AuditedRows  int            `json:"auditedRows"`
		Sources      []sourceJSON   `json:"sources"`
		Errors       map[string]int `json:"errors"`
	}{
		Duration:     formatDuration(m.Duration()),
		RowsRead:     m.totalRowsRead(),
		Wells:        m.WellsTotal,
		Intervals:    m.IntervalsTotal,
		OutputPath:   m.OutputPath,
		OutputBytes:  m.OutputBytes,
		ExportedRows: m.ExportedRows,
		AuditedRows:  m.AuditedRows,
		Sources:      sources,
		Errors:       errorCounts,
	})
}
