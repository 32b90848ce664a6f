package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeJob(t *testing.T) (dir, jobPath string) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")

	dir = t.TempDir()
	csv := "Name,X,Y,Zland,Top,Depth,Coarse,Fine\n" +
		"W1,1,2,100,0,10,0.4,0.6\n" +
		"W1,1,2,100,15,20,0.5,0.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs.csv"), []byte(csv), 0o644))

	job := `name: demo
dataset:
  classes: [Coarse, Fine]
sources:
  - type: csv
    path: logs.csv
    columns:
      top: Top
output:
  path: wells.dat
  layout: texture2par
`
	jobPath = filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(jobPath, []byte(job), 0o644))
	return dir, jobPath
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "texingest dev\n", out)
}

func TestRunCommand(t *testing.T) {
	dir, jobPath := writeJob(t)

	out, err := execute(t, "run", "--job", jobPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingest Metrics Report")
	assert.Contains(t, out, "- logs.csv (csv): 2 rows, 2 intervals, 1 placeholders")
	assert.Contains(t, out, "1 wells, 3 intervals written to "+filepath.Join(dir, "wells.dat"))
	assert.FileExists(t, filepath.Join(dir, "wells.dat"))
}

func TestRunCommandJSON(t *testing.T) {
	_, jobPath := writeJob(t)

	out, err := execute(t, "run", "--job", jobPath, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Wells     int `json:"wells"`
		Intervals int `json:"intervals"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &report))
	assert.Equal(t, 1, report.Wells)
	assert.Equal(t, 3, report.Intervals)
}

func TestRunCommandErrors(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)

	_, jobPath := writeJob(t)
	_, err = execute(t, "run", "--job", jobPath, "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "run", "--job", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "run", "--job", jobPath, "--env", filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	w1 := model.Well{ID: 1, Key: model.WellKey{Name: "W1"}, Elevation: model.Some(100)}
	w2 := model.Well{ID: 2, Key: model.WellKey{Name: "W2", X: model.Some(5), Y: model.Some(6)}, Elevation: model.Some(90)}
	records := []dataset.Record{
		{Well: w1, Interval: model.Interval{N: 1, Bottom: 10, Classes: []model.Value{model.Some(0.4)}}},
		{Well: w1, Interval: model.Interval{N: 2, Bottom: 20, Classes: []model.Value{model.NA()}}},
		{Well: w2, Interval: model.Interval{N: 1, Bottom: 5, Classes: []model.Value{model.Some(1)}}},
	}
	opts := dataset.DefaultWriteOptions()
	opts.Layout = dataset.LayoutTexture2Par
	path := filepath.Join(t.TempDir(), "wells.dat")
	require.NoError(t, dataset.NewFileWriter([]string{"Coarse"}, 0, opts).WriteFile(path, records))

	out, err := execute(t, "inspect", "--file", path, "--classes", "Coarse")
	require.NoError(t, err)
	assert.Contains(t, out, "Wells:     2\n")
	assert.Contains(t, out, "Intervals: 3\n")

	var rows [][]string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 5 {
			rows = append(rows, fields)
		}
	}
	assert.Equal(t, [][]string{
		{"ID", "Location", "X", "Y", "Intervals"},
		{"1", "W1", "NA", "NA", "2"},
		{"2", "W2", "5", "6", "1"},
	}, rows)
}

func TestInspectCommandRequiresClasses(t *testing.T) {
	_, err := execute(t, "inspect", "--file", "wells.dat")
	assert.Error(t, err)
}
