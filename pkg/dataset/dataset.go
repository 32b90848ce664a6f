// pkg/dataset/dataset.go
package dataset

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

// Dataset accumulates wells and their intervals across ingestion calls.
// It is owned by a single goroutine; nothing here is safe for concurrent use.
type Dataset struct {
	classes   []string
	cfg       Config
	logger    *zap.Logger
	conv      *converter.TypeConverter
	registry  *Registry
	wells     map[int]*wellState
	anomalies []model.Anomaly
	seq       int
}

type wellState struct {
	intervals   []model.Interval // depth order, placeholders included
	filled      bool             // gap filling has been applied to this well
	fromSurface bool
}

// AddResult describes what one AddWells call did
type AddResult struct {
	BatchID        string
	Source         string
	RowsRead       int
	IntervalsAdded int
	WellsAdded     int
	WellsTouched   int
	Placeholders   int // placeholder intervals held by the touched wells after the merge
	Anomalies      []model.Anomaly
}

// Record is one output line: an interval with its well
type Record struct {
	Well     model.Well
	Interval model.Interval
}

// New creates an empty dataset with the default configuration
func New(classes []string, logger *zap.Logger) (*Dataset, error) {
	return NewWithConfig(classes, logger, DefaultConfig(), nil)
}

// NewWithConfig creates an empty dataset. A nil converter uses converter defaults.
func NewWithConfig(
	classes []string,
	logger *zap.Logger,
	cfg Config,
	conv *converter.TypeConverter,
) (*Dataset, error) {
	seen := make(map[string]bool, len(classes))
	for _, class := range classes {
		if strings.TrimSpace(class) == "" {
			return nil, errors.New("texture class names cannot be empty")
		}
		if seen[class] {
			return nil, fmt.Errorf("duplicate texture class %q", class)
		}
		seen[class] = true
	}
	if cfg.HSULayers < 0 {
		return nil, errors.New("HSU layer count cannot be negative")
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if conv == nil {
		conv = converter.NewTypeConverter(logger)
	}

	return &Dataset{
		classes:  append([]string(nil), classes...),
		cfg:      cfg,
		logger:   logger.Named("dataset"),
		conv:     conv,
		registry: NewRegistry(),
		wells:    make(map[int]*wellState),
	}, nil
}

// Classes returns the configured texture classes in output order
func (d *Dataset) Classes() []string {
	return append([]string(nil), d.classes...)
}

// Config returns the dataset configuration
func (d *Dataset) Config() Config {
	return d.cfg
}

// WellCount returns the number of registered wells
func (d *Dataset) WellCount() int {
	return d.registry.Len()
}

// Len returns the total number of intervals, placeholders included
func (d *Dataset) Len() int {
	n := 0
	for _, st := range d.wells {
		n += len(st.intervals)
	}
	return n
}

// Well returns a registered well by ID
func (d *Dataset) Well(id int) (model.Well, bool) {
	w, ok := d.registry.Well(id)
	if !ok {
		return model.Well{}, false
	}
	return *w, true
}

// Lookup returns the ID of the well matching key
func (d *Dataset) Lookup(key model.WellKey) (int, bool) {
	return d.registry.Lookup(key)
}

// Intervals returns a copy of a well's intervals in n order
func (d *Dataset) Intervals(wellID int) []model.Interval {
	st, ok := d.wells[wellID]
	if !ok {
		return nil
	}
	out := make([]model.Interval, len(st.intervals))
	for i, iv := range st.intervals {
		out[i] = iv.Clone()
	}
	sortByIndex(out)
	return out
}

// Anomalies returns every anomaly recorded so far
func (d *Dataset) Anomalies() []model.Anomaly {
	return append([]model.Anomaly(nil), d.anomalies...)
}

// WellCoords returns the ID, name and coordinates of every well in ID order
func (d *Dataset) WellCoords() []model.WellCoord {
	wells := d.registry.Wells()
	out := make([]model.WellCoord, len(wells))
	for i, w := range wells {
		out[i] = model.WellCoord{ID: w.ID, Name: w.Key.Name, X: w.Key.X, Y: w.Key.Y}
	}
	return out
}

// Records returns every interval with its well, ordered by well ID then n
func (d *Dataset) Records() []Record {
	records := make([]Record, 0, d.Len())
	for _, w := range d.registry.Wells() {
		for _, iv := range d.Intervals(w.ID) {
			records = append(records, Record{Well: w, Interval: iv})
		}
	}
	return records
}

// Write renders the dataset to w
func (d *Dataset) Write(w io.Writer, opts WriteOptions) error {
	return NewFileWriter(d.classes, d.cfg.HSULayers, opts).Write(w, d.Records())
}

// WriteFile renders the dataset to path
func (d *Dataset) WriteFile(path string, opts WriteOptions) error {
	records := d.Records()
	if err := NewFileWriter(d.classes, d.cfg.HSULayers, opts).WriteFile(path, records); err != nil {
		return err
	}
	d.logger.Info("Wrote dataset",
		zap.String("path", path),
		zap.Int("wells", d.registry.Len()),
		zap.Int("intervals", len(records)))
	return nil
}

// AddWells ingests one batch. A structural error in any row rejects the whole batch and
// leaves the dataset unchanged; data quality anomalies are returned and retained.
func (d *Dataset) AddWells(batch *model.Batch, cols ColumnMap, opts AddOptions) (*AddResult, error) {
	if batch == nil {
		return nil, errors.New("batch cannot be nil")
	}

	result := &AddResult{
		BatchID:  uuid.New().String(),
		Source:   batch.Source,
		RowsRead: batch.Len(),
	}

	builder, unrecognized, err := NewIntervalBuilder(batch, cols, d.classes, d.cfg, d.conv)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", batch.Source, err)
	}

	var anomalies []model.Anomaly
	if len(unrecognized) > 0 {
		if d.cfg.Strict {
			return nil, fmt.Errorf("batch %s: %w: %s",
				batch.Source, ErrUnrecognizedColumn, strings.Join(unrecognized, ", "))
		}
		for _, col := range unrecognized {
			anomalies = append(anomalies, d.anomaly(result, model.AnomalyUnrecognizedColumn, -1, model.Anomaly{
				Column: col,
				Detail: fmt.Sprintf("column %q is not mapped and was ignored", col),
			}))
		}
	}

	rows := make([]builtRow, 0, batch.Len())
	for i, row := range batch.Rows {
		built, err := builder.Build(i, row)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", batch.Source, err)
		}
		built.Interval.Seq = d.seq + i
		built.Interval.BatchID = result.BatchID
		rows = append(rows, built)
	}

	plans, planAnomalies, err := d.plan(rows, result)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", batch.Source, err)
	}

	// Nothing below can fail: the batch is committed.
	seqBase := d.seq
	d.seq += len(rows)

	added := make(map[int][]model.Interval)
	for _, p := range plans {
		id, created, _ := d.registry.Resolve(p.key)
		if created {
			result.WellsAdded++
		}
		if p.changed {
			well, _ := d.registry.Well(id)
			well.Elevation = p.elevation
		}
		for _, ai := range p.anomalies {
			planAnomalies[ai].WellID = id
		}
		for _, ri := range p.rows {
			iv := rows[ri].Interval
			iv.WellID = id
			added[id] = append(added[id], iv)
		}
		p.id = id
	}
	anomalies = append(anomalies, planAnomalies...)

	ids := make([]int, 0, len(added))
	for id := range added {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		placeholders, wellAnomalies := d.merge(id, added[id], opts, builder.HasTop(), seqBase, result)
		result.Placeholders += placeholders
		anomalies = append(anomalies, wellAnomalies...)
	}

	result.IntervalsAdded = len(rows)
	result.WellsTouched = len(ids)
	result.Anomalies = anomalies
	d.anomalies = append(d.anomalies, anomalies...)

	d.logger.Info("Added entries",
		zap.String("batch", result.BatchID),
		zap.String("source", result.Source),
		zap.Int("rows", result.RowsRead),
		zap.Int("wellsTouched", result.WellsTouched),
		zap.Int("wellsAdded", result.WellsAdded),
		zap.Int("uniqueNames", uniqueNames(plans)),
		zap.Int("placeholders", result.Placeholders))
	for _, a := range anomalies {
		d.logger.Warn("Data quality anomaly",
			zap.String("kind", string(a.Kind)),
			zap.String("batch", a.BatchID),
			zap.Int("wellID", a.WellID),
			zap.Int("row", a.Row),
			zap.String("detail", a.Detail))
	}

	return result, nil
}

// wellPlan is the pending change for one well key within a batch
type wellPlan struct {
	key       model.WellKey
	id        int
	elevation model.Value
	changed   bool
	rows      []int
	anomalies []int // indices into the plan anomalies
}

// plan groups rows by well and resolves elevations without touching the registry
func (d *Dataset) plan(rows []builtRow, result *AddResult) ([]*wellPlan, []model.Anomaly, error) {
	var plans []*wellPlan
	byName := make(map[string][]*wellPlan)
	var anomalies []model.Anomaly

	for ri, row := range rows {
		var p *wellPlan
		for _, candidate := range byName[row.Key.Name] {
			if candidate.key.Equal(row.Key) {
				p = candidate
				break
			}
		}
		if p == nil {
			p = &wellPlan{key: row.Key, elevation: model.NA()}
			if id, ok := d.registry.Lookup(row.Key); ok {
				w, _ := d.registry.Well(id)
				p.id = id
				p.elevation = w.Elevation
			}
			plans = append(plans, p)
			byName[row.Key.Name] = append(byName[row.Key.Name], p)
		}
		p.rows = append(p.rows, ri)

		if row.Elevation.IsNA() || row.Elevation.Equal(p.elevation) {
			continue
		}
		if p.elevation.IsNA() {
			p.elevation = row.Elevation
			p.changed = true
			continue
		}

		recorded := p.elevation
		kept, discarded := recorded, row.Elevation
		switch d.cfg.ElevationPolicy {
		case ElevationStrict:
			return nil, nil, rowError(row.Row, row.Key, ErrConflictingElevation,
				"recorded %s, row has %s", recorded, row.Elevation)
		case ElevationKeepLatest:
			kept, discarded = row.Elevation, p.elevation
			p.elevation = row.Elevation
			p.changed = true
		}

		p.anomalies = append(p.anomalies, len(anomalies))
		anomalies = append(anomalies, d.anomaly(result, model.AnomalyConflictingElevation, row.Row, model.Anomaly{
			WellID:    p.id,
			WellKey:   row.Key,
			KeptValue: kept,
			Discarded: discarded,
			Detail: fmt.Sprintf("elevation %s conflicts with %s; kept %s (%s)",
				row.Elevation, recorded, kept, d.cfg.ElevationPolicy),
		}))
	}

	return plans, anomalies, nil
}

// merge folds new intervals into a well, refills gaps and renumbers
func (d *Dataset) merge(
	id int,
	added []model.Interval,
	opts AddOptions,
	hasTop bool,
	seqBase int,
	result *AddResult,
) (int, []model.Anomaly) {
	st, ok := d.wells[id]
	if !ok {
		st = &wellState{}
		d.wells[id] = st
	}

	all := make([]model.Interval, 0, len(st.intervals)+len(added))
	mixed := false
	for _, iv := range st.intervals {
		if iv.Placeholder {
			continue
		}
		if len(added) > 0 && iv.ExplicitN != added[0].ExplicitN {
			mixed = true
		}
		all = append(all, iv)
	}
	all = append(all, added...)

	if opts.FillMissing && hasTop {
		st.filled = true
		st.fromSurface = st.fromSurface || opts.FillFromSurface
	}

	well, _ := d.registry.Well(id)
	var anomalies []model.Anomaly

	if st.filled {
		filler := GapFiller{FromSurface: st.fromSurface, Classes: len(d.classes), Layers: d.cfg.HSULayers}
		var overlaps []Overlap
		all, overlaps = filler.Fill(all)
		for _, o := range overlaps {
			if o.Upper.BatchID != result.BatchID && o.Lower.BatchID != result.BatchID {
				continue // reported by an earlier batch
			}
			row := -1
			if o.Lower.BatchID == result.BatchID {
				row = o.Lower.Seq - seqBase
			}
			anomalies = append(anomalies, d.anomaly(result, model.AnomalyOverlappingIntervals, row, model.Anomaly{
				WellID:  id,
				WellKey: well.Key,
				Detail: fmt.Sprintf("interval %s-%v overlaps %s-%v",
					o.Lower.Top, o.Lower.Bottom, o.Upper.Top, o.Upper.Bottom),
			}))
		}
	} else {
		SortIntervals(all)
	}

	placeholders := 0
	for i := range all {
		if all[i].Placeholder {
			all[i].BatchID = result.BatchID
			placeholders++
		}
	}

	maxN := numberIntervals(all)
	if mixed {
		anomalies = append(anomalies, d.anomaly(result, model.AnomalyMixedIndex, -1, model.Anomaly{
			WellID:  id,
			WellKey: well.Key,
			Detail: fmt.Sprintf("well mixes explicit and assigned interval indexes; "+
				"explicit indexes are kept and assigned ones run after them up to %d", maxN),
		}))
	}

	seen := make(map[int]bool)
	for _, iv := range all {
		if iv.ExplicitN && iv.BatchID != result.BatchID {
			seen[iv.N] = true
		}
	}
	for _, iv := range all {
		if !iv.ExplicitN || iv.BatchID != result.BatchID {
			continue
		}
		if seen[iv.N] {
			anomalies = append(anomalies, d.anomaly(result, model.AnomalyDuplicateIndex, iv.Seq-seqBase, model.Anomaly{
				WellID:  id,
				WellKey: well.Key,
				Detail:  fmt.Sprintf("interval index %d used more than once", iv.N),
			}))
		}
		seen[iv.N] = true
	}

	st.intervals = all
	return placeholders, anomalies
}

func (d *Dataset) anomaly(result *AddResult, kind model.AnomalyKind, row int, a model.Anomaly) model.Anomaly {
	a.Kind = kind
	a.BatchID = result.BatchID
	a.Source = result.Source
	a.Row = row
	a.DetectedAt = time.Now()
	return a
}

// numberIntervals assigns n and returns the highest index. Wells with no explicit indexes
// are numbered from IndexBase in depth order; otherwise explicit indexes stay and the rest
// continue after the maximum, in depth order.
func numberIntervals(ivs []model.Interval) int {
	explicit := false
	maxN := IndexBase - 1
	for _, iv := range ivs {
		if iv.ExplicitN {
			explicit = true
			if iv.N > maxN {
				maxN = iv.N
			}
		}
	}

	if !explicit {
		for i := range ivs {
			ivs[i].N = IndexBase + i
		}
		return IndexBase + len(ivs) - 1
	}

	next := maxN + 1
	for i := range ivs {
		if !ivs[i].ExplicitN {
			ivs[i].N = next
			next++
		}
	}
	return next - 1
}

func sortByIndex(ivs []model.Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		return ivs[i].N < ivs[j].N
	})
}

func uniqueNames(plans []*wellPlan) int {
	names := make(map[string]bool, len(plans))
	for _, p := range plans {
		names[p.key.Name] = true
	}
	return len(names)
}
