package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/t2p"
)

func writeJob(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wells.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadJob(t *testing.T) {
	path := writeJob(t, `
name: county-logs
dataset:
  classes: [Coarse, Fine]
  nlay: 2
  elevation_policy: keep_latest
  strict: true
sources:
  - type: csv
    path: data/logs.tsv
    delimiter: '\t'
    columns:
      name: WellName
      top: Top
      x: ""
      y: ""
    classes:
      Coarse: pct_coarse
    fill_missing: false
  - name: archive
    type: postgres
    table: lithology_logs
    fill_from_surface: true
output:
  path: out/texture.dat
  layout: texture2par
  header: false
  precision: 3
  postgres_table: texture_intervals
audit: true
continue_on_error: true
`)
	cfg := &Config{OutputNAToken: "-99", OutputPrecision: 4}

	job, err := LoadJob(path, cfg)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "county-logs", job.Name)
	assert.Equal(t, []string{"Coarse", "Fine"}, job.Classes)
	assert.Equal(t, 2, job.Dataset.HSULayers)
	assert.Equal(t, dataset.ElevationKeepLatest, job.Dataset.ElevationPolicy)
	assert.True(t, job.Dataset.Strict)
	assert.True(t, job.Dataset.RejectNegativeDepth)
	assert.True(t, job.Audit)
	assert.True(t, job.ContinueOnError)

	require.Len(t, job.Sources, 2)
	csv := job.Sources[0]
	assert.Equal(t, SourceCSV, csv.Kind)
	assert.Equal(t, filepath.Join(dir, "data", "logs.tsv"), csv.Path)
	assert.Equal(t, "logs.tsv", csv.Name)
	assert.Equal(t, '\t', csv.Delimiter)
	assert.Equal(t, "WellName", csv.Columns.Name)
	assert.Equal(t, "Top", csv.Columns.DepthTop)
	assert.Equal(t, "", csv.Columns.X)
	assert.Equal(t, "Zland", csv.Columns.Zland)
	assert.Equal(t, "Depth", csv.Columns.Depth)
	assert.Equal(t, map[string]string{"Coarse": "pct_coarse"}, csv.Columns.Classes)
	assert.False(t, csv.Add.FillMissing)

	pg := job.Sources[1]
	assert.Equal(t, SourcePostgres, pg.Kind)
	assert.Equal(t, "archive", pg.Name)
	assert.Equal(t, "lithology_logs", pg.Table)
	assert.Equal(t, dataset.DefaultColumnMap(), pg.Columns)
	assert.True(t, pg.Add.FillMissing)
	assert.True(t, pg.Add.FillFromSurface)

	out := job.Output
	assert.Equal(t, filepath.Join(dir, "out", "texture.dat"), out.Path)
	assert.Equal(t, dataset.LayoutTexture2Par, out.Write.Layout)
	assert.False(t, out.Write.Header)
	assert.Equal(t, 3, out.Write.Precision)
	assert.Equal(t, "-99", out.Write.NAToken)
	assert.Equal(t, "\t", out.Write.Separator)
	assert.Equal(t, "texture_intervals", out.PostgresTable)
	assert.Equal(t, "public", out.PostgresSchema)

	assert.True(t, job.UsesPostgres())
	assert.False(t, job.UsesSnowflake())
}

func TestLoadJobDefaults(t *testing.T) {
	path := writeJob(t, `
dataset:
  classes: [Coarse]
sources:
  - type: snowflake
    query: SELECT * FROM LOGS
output:
  path: /tmp/texture.dat
`)

	job, err := LoadJob(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "wells", job.Name)
	assert.Equal(t, dataset.DefaultConfig(), job.Dataset)
	assert.Equal(t, "snowflake:query", job.Sources[0].Name)
	assert.Equal(t, "/tmp/texture.dat", job.Output.Path)
	assert.Equal(t, dataset.DefaultWriteOptions(), job.Output.Write)
	assert.False(t, job.UsesPostgres())
	assert.True(t, job.UsesSnowflake())
}

func TestLoadJobInvalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no classes", `
sources: [{type: csv, path: a.csv}]
output: {path: out.dat}`, "dataset.classes"},
		{"blank class", `
dataset: {classes: [Coarse, " "]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat}`, "dataset.classes[1]"},
		{"bad policy", `
dataset: {classes: [Coarse], elevation_policy: average}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat}`, "dataset.elevation_policy"},
		{"no sources", `
dataset: {classes: [Coarse]}
output: {path: out.dat}`, "sources"},
		{"unknown type", `
dataset: {classes: [Coarse]}
sources: [{type: parquet, path: a.parquet}]
output: {path: out.dat}`, "sources[0].type"},
		{"csv without path", `
dataset: {classes: [Coarse]}
sources: [{type: csv}]
output: {path: out.dat}`, "sources[0].path"},
		{"query and table", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}, {type: postgres, query: SELECT 1, table: logs}]
output: {path: out.dat}`, "sources[1]"},
		{"bad delimiter", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv, delimiter: ";;"}]
output: {path: out.dat}`, "sources[0].delimiter"},
		{"unmapped depth", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv, columns: {depth: ""}}]
output: {path: out.dat}`, "sources[0].columns.depth"},
		{"no output", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]`, "output.path"},
		{"bad layout", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, layout: xlsx}`, "output.layout"},
		{"empty separator", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, separator: ""}`, "output.separator"},
		{"multi character separator", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, separator: "  "}`, "output.separator"},
		{"quote separator", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, separator: "\""}`, "output.separator"},
		{"well log unknown class", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, well_log: {path: logs.dat, class: Silt}}`, "output.well_log.class"},
		{"control without sim file", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, control: {hydrogeo_unit_file: hsu.dat}}`, "output.control.sim_file"},
		{"iwfm without preproc", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, control: {sim_file: Simulation.in}}`, "output.control.preproc_file"},
		{"unknown estimated setting", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output: {path: out.dat, control: {sim_file: model.nam, estimate: [porosity]}}`, "output.control.estimate"},
		{"aquitard storage estimate", `
dataset: {classes: [Coarse]}
sources: [{type: csv, path: a.csv}]
output:
  path: out.dat
  control:
    sim_file: model.nam
    aquitard_pilot_points: [{x: 1, y: 2, estimate: [SsC]}]`, "output.control.aquitard_pilot_points[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJob(writeJob(t, tt.body), nil)
			require.Error(t, err)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestLoadJobTexture2ParOutputs(t *testing.T) {
	path := writeJob(t, `
dataset:
  classes: [Coarse, Fine]
sources:
  - type: csv
    path: logs.csv
output:
  path: out/texture.dat
  layout: texture2par
  well_log:
    path: out/coarse.dat
  control:
    path: out/Texture2Par.in
    template_path: out/Texture2Par.tpl
    hydrogeo_unit_file: hsu.dat
    sim_file: model.nam
    sill: 2.5
    nkrige_wells: 8
    estimate: [sill, KHp]
    pilot_points:
      - {x: 100, y: 200, kc_min: 1, delta_kc: 2, kf_min: 0.1, delta_kf: 0.2, ss_c: 0.00001, ss_f: 0.00002, sy_c: 0.1, sy_f: 0.2, zone: 3, estimate: [KCMin]}
    aquitard_pilot_points:
      - {x: 1, y: 2, kc_min: 3, delta_kc: 4, kf_min: 5, delta_kf: 6, aniso_c: 5}
`)
	dir := filepath.Dir(path)

	job, err := LoadJob(path, nil)
	require.NoError(t, err)

	require.NotNil(t, job.Output.WellLog)
	assert.Equal(t, filepath.Join(dir, "out", "coarse.dat"), job.Output.WellLog.Path)
	assert.Equal(t, "Coarse", job.Output.WellLog.Class)

	ctl := job.Output.Control
	require.NotNil(t, ctl)
	assert.Equal(t, filepath.Join(dir, "out", "Texture2Par.in"), ctl.Path)
	assert.Equal(t, filepath.Join(dir, "out", "Texture2Par.tpl"), ctl.TemplatePath)
	require.NotNil(t, ctl.File)
	assert.Equal(t, t2p.ModelMODFLOW, ctl.File.ModelType())

	s := ctl.File.Settings()
	assert.Equal(t, "texture.dat", s.WellLogFile)
	assert.Equal(t, 2.5, s.Sill)
	assert.Equal(t, 8, s.NKrigeWells)
	assert.Equal(t, t2p.DefaultSettings().KHp, s.KHp)
	assert.Equal(t, []string{"sill", "KHp"}, ctl.File.Estimated())

	aquifer, aquitard := ctl.File.PilotPoints()
	assert.Equal(t, 1, aquifer)
	assert.Equal(t, 1, aquitard)
}

func TestLoadJobUnreadable(t *testing.T) {
	_, err := LoadJob(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadJob(writeJob(t, "dataset: [unterminated"), nil)
	assert.ErrorContains(t, err, "invalid YAML")
}
