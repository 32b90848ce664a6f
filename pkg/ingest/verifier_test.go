package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

func sampleRecords() []dataset.Record {
	w1 := model.Well{ID: 1, Key: model.WellKey{Name: "W1"}, Elevation: model.Some(100)}
	w2 := model.Well{ID: 2, Key: model.WellKey{Name: "W2", X: model.Some(5), Y: model.Some(6)}, Elevation: model.NA()}
	return []dataset.Record{
		{Well: w1, Interval: model.Interval{WellID: 1, N: 1, Top: model.Some(0), Bottom: 10, Classes: []model.Value{model.Some(0.4)}}},
		{Well: w1, Interval: model.Interval{WellID: 1, N: 2, Top: model.Some(10), Bottom: 15, Classes: []model.Value{model.NA()}, Placeholder: true}},
		{Well: w2, Interval: model.Interval{WellID: 2, N: 1, Top: model.Some(0), Bottom: 5, Classes: []model.Value{model.Some(1)}}},
	}
}

func writeSample(t *testing.T, opts dataset.WriteOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wells.dat")
	require.NoError(t, dataset.NewFileWriter([]string{"Coarse"}, 0, opts).WriteFile(path, sampleRecords()))
	return path
}

func TestVerifyOutput(t *testing.T) {
	layouts := []dataset.Layout{dataset.LayoutStandard, dataset.LayoutTexture2Par}
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			opts := dataset.DefaultWriteOptions()
			opts.Layout = layout
			path := writeSample(t, opts)

			report, err := NewVerifier(zaptest.NewLogger(t)).VerifyOutput(path, opts, []string{"Coarse"}, 0, 3)
			require.NoError(t, err)
			assert.True(t, report.OK())
			assert.Equal(t, 3, report.ActualLines)
			assert.Equal(t, 3, report.RecordsParsed)
			assert.Equal(t, 2, report.Wells)
			assert.True(t, report.HeaderMatches)
			assert.Positive(t, report.Bytes)
		})
	}
}

func TestVerifyOutputCustomFormat(t *testing.T) {
	opts := dataset.WriteOptions{Separator: ",", Header: false, NAToken: "NA", Precision: 2}
	path := writeSample(t, opts)

	report, err := NewVerifier(nil).VerifyOutput(path, opts, []string{"Coarse"}, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, report.ActualLines)
}

func TestVerifyOutputLineCountMismatch(t *testing.T) {
	opts := dataset.DefaultWriteOptions()
	path := writeSample(t, opts)

	report, err := NewVerifier(nil).VerifyOutput(path, opts, []string{"Coarse"}, 0, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVerificationFailed))
	assert.False(t, report.LineCountMatches)
	assert.Equal(t, 3, report.ActualLines)
}

func TestVerifyOutputBadColumns(t *testing.T) {
	opts := dataset.DefaultWriteOptions()
	path := writeSample(t, opts)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("3\t1\t0\t5\t100\t0.5\textra\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := NewVerifier(nil).VerifyOutput(path, opts, []string{"Coarse"}, 0, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVerificationFailed))
	assert.Equal(t, []int{5}, report.BadLines)
}

func TestVerifyOutputWrongHeader(t *testing.T) {
	opts := dataset.DefaultWriteOptions()
	path := writeSample(t, opts)

	// same file checked against a different class list
	report, err := NewVerifier(nil).VerifyOutput(path, opts, []string{"Sand"}, 0, 3)
	require.Error(t, err)
	assert.False(t, report.HeaderMatches)
}

func TestVerifyOutputMissingFile(t *testing.T) {
	_, err := NewVerifier(nil).VerifyOutput(filepath.Join(t.TempDir(), "none.dat"), dataset.DefaultWriteOptions(), nil, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestVerifyOutputQuotedName(t *testing.T) {
	records := sampleRecords()
	for i := range records[:2] {
		records[i].Well.Key.Name = "Smith\tRanch"
	}
	opts := dataset.DefaultWriteOptions()
	opts.Layout = dataset.LayoutTexture2Par
	path := filepath.Join(t.TempDir(), "wells.dat")
	require.NoError(t, dataset.NewFileWriter([]string{"Coarse"}, 0, opts).WriteFile(path, records))

	report, err := NewVerifier(zaptest.NewLogger(t)).VerifyOutput(path, opts, []string{"Coarse"}, 0, 3)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.BadLines)
	assert.Equal(t, 2, report.Wells)
}

func TestVerifyOutputInvalidSeparator(t *testing.T) {
	path := writeSample(t, dataset.DefaultWriteOptions())

	opts := dataset.DefaultWriteOptions()
	opts.Separator = "  "
	_, err := NewVerifier(nil).VerifyOutput(path, opts, []string{"Coarse"}, 0, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVerificationFailed))
}
