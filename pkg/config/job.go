// pkg/config/job.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/t2p"
)

// SourceKind names a batch source backend
type SourceKind string

const (
	SourceCSV       SourceKind = "csv"
	SourcePostgres  SourceKind = "postgres"
	SourceSnowflake SourceKind = "snowflake"
)

// Job describes one ingestion run
type Job struct {
	Name            string
	Classes         []string
	Dataset         dataset.Config
	Sources         []SourceSpec
	Output          OutputSpec
	Audit           bool
	ContinueOnError bool
}

// SourceSpec describes one batch to feed into the dataset
type SourceSpec struct {
	Name      string
	Kind      SourceKind
	Path      string
	Delimiter rune
	Query     string
	Table     string
	Columns   dataset.ColumnMap
	Add       dataset.AddOptions
}

// OutputSpec describes where the dataset goes
type OutputSpec struct {
	Path  string
	Write dataset.WriteOptions

	// Optional PostgreSQL export; empty table disables it
	PostgresTable  string
	PostgresSchema string

	WellLog *WellLogSpec
	Control *ControlSpec
}

// WellLogSpec requests a point well log of one texture class next to the dataset file
type WellLogSpec struct {
	Path  string
	Class string
}

// ControlSpec is a Texture2Par control file to write after the dataset file. An empty
// TemplatePath skips the PEST template.
type ControlSpec struct {
	Path         string
	TemplatePath string
	Delimiter    string
	File         *t2p.InputFile
}

// UsesPostgres reports whether any part of the job needs a PostgreSQL connection
func (j *Job) UsesPostgres() bool {
	if j.Audit || j.Output.PostgresTable != "" {
		return true
	}
	for _, s := range j.Sources {
		if s.Kind == SourcePostgres {
			return true
		}
	}
	return false
}

// UsesSnowflake reports whether any source reads from Snowflake
func (j *Job) UsesSnowflake() bool {
	for _, s := range j.Sources {
		if s.Kind == SourceSnowflake {
			return true
		}
	}
	return false
}

// FieldError reports an invalid value in a job file
type FieldError struct {
	Path  string
	Field string
	Msg   string
	Err   error
}

func (e *FieldError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FieldError) Unwrap() error { return e.Err }

// LoadJob reads a YAML job file. Output settings the file leaves unset come from cfg; a
// nil cfg uses the dataset defaults. Relative paths resolve against the job file directory.
func LoadJob(path string, cfg *Config) (*Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &FieldError{Path: path, Msg: "failed to read job file", Err: err}
	}

	var dto YAMLJob
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return nil, &FieldError{Path: path, Msg: "invalid YAML", Err: err}
	}

	defaults := dataset.DefaultWriteOptions()
	if cfg != nil {
		defaults = cfg.WriteDefaults()
	}

	return MapJob(path, dto, defaults)
}

// MapJob validates a decoded job file and converts it to a Job
func MapJob(path string, yj YAMLJob, defaults dataset.WriteOptions) (*Job, error) {
	dir := filepath.Dir(path)

	job := &Job{
		Name:            strings.TrimSpace(yj.Name),
		Classes:         yj.Dataset.Classes,
		Audit:           yj.Audit,
		ContinueOnError: yj.ContinueOnError,
	}
	if job.Name == "" {
		job.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if len(yj.Dataset.Classes) == 0 {
		return nil, invalidField(path, "dataset.classes", "at least one texture class is required")
	}
	for i, class := range yj.Dataset.Classes {
		if strings.TrimSpace(class) == "" {
			return nil, invalidField(path, fmt.Sprintf("dataset.classes[%d]", i), "class name is required")
		}
	}
	if yj.Dataset.HSULayers < 0 {
		return nil, invalidField(path, "dataset.nlay", "cannot be negative")
	}

	policy, err := dataset.ParseElevationPolicy(yj.Dataset.ElevationPolicy)
	if err != nil {
		return nil, invalidField(path, "dataset.elevation_policy", err.Error())
	}

	job.Dataset = dataset.DefaultConfig()
	job.Dataset.HSULayers = yj.Dataset.HSULayers
	job.Dataset.ElevationPolicy = policy
	job.Dataset.Strict = yj.Dataset.Strict
	job.Dataset.RejectNegativeDepth = !yj.Dataset.AllowNegativeDepth

	if len(yj.Sources) == 0 {
		return nil, invalidField(path, "sources", "at least one source is required")
	}
	for i, ys := range yj.Sources {
		spec, err := mapSource(path, dir, fmt.Sprintf("sources[%d]", i), ys)
		if err != nil {
			return nil, err
		}
		job.Sources = append(job.Sources, spec)
	}

	out, err := mapOutput(path, dir, yj.Output, defaults)
	if err != nil {
		return nil, err
	}
	if yw := yj.Output.WellLog; yw != nil {
		if out.WellLog, err = mapWellLog(path, dir, *yw, job.Classes); err != nil {
			return nil, err
		}
	}
	if yc := yj.Output.Control; yc != nil {
		if out.Control, err = mapControl(path, dir, *yc, out.Path); err != nil {
			return nil, err
		}
	}
	job.Output = out

	return job, nil
}

func mapSource(path, dir, field string, ys YAMLSource) (SourceSpec, error) {
	spec := SourceSpec{
		Name:      strings.TrimSpace(ys.Name),
		Kind:      SourceKind(strings.ToLower(strings.TrimSpace(ys.Type))),
		Delimiter: ',',
		Query:     strings.TrimSpace(ys.Query),
		Table:     strings.TrimSpace(ys.Table),
		Add:       dataset.DefaultAddOptions(),
	}

	switch spec.Kind {
	case SourceCSV:
		if strings.TrimSpace(ys.Path) == "" {
			return spec, invalidField(path, field+".path", "path is required for csv sources")
		}
		spec.Path = resolvePath(dir, ys.Path)
		if ys.Delimiter != "" {
			d, err := parseDelimiter(ys.Delimiter)
			if err != nil {
				return spec, invalidField(path, field+".delimiter", err.Error())
			}
			spec.Delimiter = d
		}
		if spec.Name == "" {
			spec.Name = filepath.Base(spec.Path)
		}
	case SourcePostgres, SourceSnowflake:
		if (spec.Query == "") == (spec.Table == "") {
			return spec, invalidField(path, field, "exactly one of query or table is required")
		}
		if spec.Name == "" {
			spec.Name = string(spec.Kind) + ":" + spec.Table
			if spec.Table == "" {
				spec.Name = string(spec.Kind) + ":query"
			}
		}
	case "":
		return spec, invalidField(path, field+".type", "type is required")
	default:
		return spec, invalidField(path, field+".type", fmt.Sprintf("unsupported source type %q", ys.Type))
	}

	spec.Columns = mapColumns(ys.Columns)
	if spec.Columns.Name == "" {
		return spec, invalidField(path, field+".columns.name", "well name column is required")
	}
	if spec.Columns.Depth == "" {
		return spec, invalidField(path, field+".columns.depth", "depth column is required")
	}
	if len(ys.Classes) > 0 {
		spec.Columns.Classes = ys.Classes
	}

	if ys.FillMissing != nil {
		spec.Add.FillMissing = *ys.FillMissing
	}
	spec.Add.FillFromSurface = ys.FillFromSurface

	return spec, nil
}

func mapColumns(yc *YAMLColumns) dataset.ColumnMap {
	cols := dataset.DefaultColumnMap()
	if yc == nil {
		return cols
	}
	override := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	override(&cols.Name, yc.Name)
	override(&cols.X, yc.X)
	override(&cols.Y, yc.Y)
	override(&cols.Zland, yc.Zland)
	override(&cols.Depth, yc.Depth)
	override(&cols.DepthTop, yc.Top)
	override(&cols.N, yc.N)
	return cols
}

func mapOutput(path, dir string, yo YAMLOutput, defaults dataset.WriteOptions) (OutputSpec, error) {
	if strings.TrimSpace(yo.Path) == "" {
		return OutputSpec{}, invalidField(path, "output.path", "output path is required")
	}

	layout, err := dataset.ParseLayout(yo.Layout)
	if err != nil {
		return OutputSpec{}, invalidField(path, "output.layout", err.Error())
	}

	opts := defaults
	opts.Layout = layout
	if yo.Separator != nil {
		if _, err := dataset.ParseSeparator(*yo.Separator); err != nil {
			return OutputSpec{}, invalidField(path, "output.separator", err.Error())
		}
		opts.Separator = *yo.Separator
	}
	if yo.Header != nil {
		opts.Header = *yo.Header
	}
	if yo.Precision != nil {
		if *yo.Precision < 0 || *yo.Precision > 17 {
			return OutputSpec{}, invalidField(path, "output.precision", "must be between 0 and 17")
		}
		opts.Precision = *yo.Precision
	}
	if yo.NAToken != nil {
		if strings.TrimSpace(*yo.NAToken) == "" {
			return OutputSpec{}, invalidField(path, "output.na_token", "NA token cannot be empty")
		}
		opts.NAToken = *yo.NAToken
	}

	out := OutputSpec{
		Path:           resolvePath(dir, yo.Path),
		Write:          opts,
		PostgresTable:  strings.TrimSpace(yo.PostgresTable),
		PostgresSchema: strings.TrimSpace(yo.PostgresSchema),
	}
	if out.PostgresTable != "" && out.PostgresSchema == "" {
		out.PostgresSchema = "public"
	}
	return out, nil
}

func mapWellLog(path, dir string, yw YAMLWellLog, classes []string) (*WellLogSpec, error) {
	if strings.TrimSpace(yw.Path) == "" {
		return nil, invalidField(path, "output.well_log.path", "path is required")
	}
	class := strings.TrimSpace(yw.Class)
	if class == "" {
		class = classes[0]
	}
	if !slices.Contains(classes, class) {
		return nil, invalidField(path, "output.well_log.class", fmt.Sprintf("unknown class %q", class))
	}
	return &WellLogSpec{Path: resolvePath(dir, yw.Path), Class: class}, nil
}

func mapControl(path, dir string, yc YAMLControl, datasetPath string) (*ControlSpec, error) {
	const field = "output.control"
	if strings.TrimSpace(yc.SimFile) == "" {
		return nil, invalidField(path, field+".sim_file", "simulation file is required")
	}
	spec := &ControlSpec{
		Path:      resolvePath(dir, t2p.DefaultFileName),
		Delimiter: strings.TrimSpace(yc.Delimiter),
	}
	if strings.TrimSpace(yc.Path) != "" {
		spec.Path = resolvePath(dir, yc.Path)
	}
	if strings.TrimSpace(yc.TemplatePath) != "" {
		spec.TemplatePath = resolvePath(dir, yc.TemplatePath)
	}
	if spec.Delimiter != "" && utf8.RuneCountInString(spec.Delimiter) != 1 {
		return nil, invalidField(path, field+".delimiter", "delimiter must be a single character")
	}

	s := t2p.DefaultSettings()
	s.WellLogFile = strings.TrimSpace(yc.WellLogFile)
	if s.WellLogFile == "" {
		// Texture2Par resolves its inputs from the control file's directory
		s.WellLogFile = datasetPath
		if rel, err := filepath.Rel(filepath.Dir(spec.Path), datasetPath); err == nil {
			s.WellLogFile = rel
		}
	}
	s.UnitFile = strings.TrimSpace(yc.UnitFile)
	s.SimFile = strings.TrimSpace(yc.SimFile)
	s.PreprocFile = strings.TrimSpace(yc.PreprocFile)
	s.TemplateFile = strings.TrimSpace(yc.TemplateFile)
	s.PPZoneFile = strings.TrimSpace(yc.PPZoneFile)
	s.XOffset, s.YOffset, s.Rotation = yc.XOffset, yc.YOffset, yc.Rotation
	s.FullOutput = yc.FullOutput

	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&s.VariogramType, yc.VariogramType)
	setFloat(&s.Sill, yc.Sill)
	setFloat(&s.RangeMax, yc.RangeMax)
	setFloat(&s.RangeMin, yc.RangeMin)
	setFloat(&s.Anisotropy, yc.Anisotropy)
	setFloat(&s.Nugget, yc.Nugget)
	setInt(&s.NKrigeWells, yc.NKrigeWells)
	setFloat(&s.KCk, yc.KCk)
	setFloat(&s.KFk, yc.KFk)
	setFloat(&s.KHp, yc.KHp)
	setFloat(&s.KVp, yc.KVp)
	setFloat(&s.Syp, yc.Syp)
	if s.NKrigeWells <= 0 {
		return nil, invalidField(path, field+".nkrige_wells", "must be positive")
	}

	f, err := t2p.NewInputFile(s, nil)
	if err != nil {
		return nil, invalidField(path, field+".preproc_file", err.Error())
	}
	if err := f.SetEstimated(yc.Estimate...); err != nil {
		return nil, invalidField(path, field+".estimate", err.Error())
	}

	for i, yp := range yc.PilotPoints {
		pp := t2p.NewPilotPoint(yp.X, yp.Y, yp.KCMin, yp.DeltaKC, yp.KFMin, yp.DeltaKF, yp.SsC, yp.SsF, yp.SyC, yp.SyF)
		if err := mapPilotPoint(pp, yp); err != nil {
			return nil, invalidField(path, fmt.Sprintf("%s.pilot_points[%d]", field, i), err.Error())
		}
		f.AddPilotPoint(pp)
	}
	for i, yp := range yc.AquitardPilotPoints {
		pp := t2p.NewAquitardPilotPoint(yp.X, yp.Y, yp.KCMin, yp.DeltaKC, yp.KFMin, yp.DeltaKF)
		if err := mapPilotPoint(pp, yp); err != nil {
			return nil, invalidField(path, fmt.Sprintf("%s.aquitard_pilot_points[%d]", field, i), err.Error())
		}
		f.AddPilotPoint(pp)
	}

	spec.File = f
	return spec, nil
}

func mapPilotPoint(pp *t2p.PilotPoint, yp YAMLPilotPoint) error {
	if yp.AnisoC != nil {
		pp.AnisoC = *yp.AnisoC
	}
	if yp.AnisoF != nil {
		pp.AnisoF = *yp.AnisoF
	}
	if yp.Zone != nil {
		pp.Zone = *yp.Zone
	}
	return pp.SetEstimated(yp.Estimate...)
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

func resolvePath(dir, p string) string {
	p = strings.TrimSpace(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func invalidField(path, field, msg string) error {
	return &FieldError{Path: path, Field: field, Msg: msg}
}
