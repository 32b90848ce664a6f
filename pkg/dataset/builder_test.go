package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

func newBatch(cols []string, rows ...[]interface{}) *model.Batch {
	b := model.NewBatch("test", cols)
	for _, r := range rows {
		b.Append(r...)
	}
	return b
}

func newBuilder(t *testing.T, b *model.Batch, cols ColumnMap, classes []string, cfg Config) (*IntervalBuilder, []string) {
	t.Helper()
	builder, unrecognized, err := NewIntervalBuilder(b, cols, classes, cfg, converter.NewTypeConverter(nil))
	require.NoError(t, err)
	return builder, unrecognized
}

func TestBuildRow(t *testing.T) {
	b := newBatch(
		[]string{"Name", "X", "Y", "Zland", "Top", "Depth", "Coarse", "Comment"},
		[]interface{}{"W1", "10", "20", "105.5", "0", "12.5", "0.75", "sandy"},
	)
	cols := DefaultColumnMap()
	cols.DepthTop = "Top"

	builder, unrecognized := newBuilder(t, b, cols, []string{"Coarse", "Fine"}, DefaultConfig())
	assert.Equal(t, []string{"Comment"}, unrecognized)
	assert.True(t, builder.HasTop())

	row, err := builder.Build(0, b.Rows[0])
	require.NoError(t, err)

	assert.Equal(t, "W1", row.Key.Name)
	assert.True(t, row.Key.X.Equal(model.Some(10)))
	assert.True(t, row.Key.Y.Equal(model.Some(20)))
	assert.True(t, row.Elevation.Equal(model.Some(105.5)))
	assert.True(t, row.Interval.Top.Equal(model.Some(0)))
	assert.Equal(t, 12.5, row.Interval.Bottom)
	require.Len(t, row.Interval.Classes, 2)
	assert.True(t, row.Interval.Classes[0].Equal(model.Some(0.75)))
	assert.True(t, row.Interval.Classes[1].IsNA(), "absent class column becomes NA")
	assert.False(t, row.Interval.ExplicitN)
}

func TestBuildRowErrors(t *testing.T) {
	cols := ColumnMap{Name: "Name", Depth: "Depth", DepthTop: "Top", N: "n"}
	header := []string{"Name", "Top", "Depth", "n"}

	tests := []struct {
		name string
		row  []interface{}
		want error
	}{
		{"missing name", []interface{}{"", 0, 10, 1}, ErrInvalidWellKey},
		{"nil name", []interface{}{nil, 0, 10, 1}, ErrInvalidWellKey},
		{"name with line break", []interface{}{"Smith\nRanch", 0, 10, 1}, ErrInvalidWellKey},
		{"missing bottom", []interface{}{"W1", 0, nil, 1}, ErrInvalidDepth},
		{"non numeric bottom", []interface{}{"W1", 0, "deep", 1}, ErrInvalidDepth},
		{"negative bottom", []interface{}{"W1", 0, -3, 1}, ErrInvalidDepth},
		{"missing top", []interface{}{"W1", "", 10, 1}, ErrInvalidDepth},
		{"top below bottom", []interface{}{"W1", 12, 10, 1}, ErrInvalidDepth},
		{"fractional index", []interface{}{"W1", 0, 10, 1.5}, ErrInvalidIndex},
		{"missing index", []interface{}{"W1", 0, 10, nil}, ErrInvalidIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBatch(header, tt.row)
			builder, _ := newBuilder(t, b, cols, nil, DefaultConfig())

			_, err := builder.Build(4, b.Rows[0])
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 4, rowErr.Row)
		})
	}
}

func TestBuildRowTopEqualsBottom(t *testing.T) {
	b := newBatch([]string{"Name", "Top", "Depth"}, []interface{}{"W1", 10, 10})
	builder, _ := newBuilder(t, b, ColumnMap{Name: "Name", Depth: "Depth", DepthTop: "Top"}, nil, DefaultConfig())

	_, err := builder.Build(0, b.Rows[0])
	assert.NoError(t, err)
}

func TestBuildRowNegativeDepthAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RejectNegativeDepth = false

	b := newBatch([]string{"Name", "Depth"}, []interface{}{"W1", -2})
	builder, _ := newBuilder(t, b, ColumnMap{Name: "Name", Depth: "Depth"}, nil, cfg)

	row, err := builder.Build(0, b.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, -2.0, row.Interval.Bottom)
}

func TestBuildRowInvalidClassValue(t *testing.T) {
	b := newBatch([]string{"Name", "Depth", "Coarse"}, []interface{}{"W1", 5, "gravel"})
	builder, _ := newBuilder(t, b, ColumnMap{Name: "Name", Depth: "Depth"}, []string{"Coarse"}, DefaultConfig())

	_, err := builder.Build(0, b.Rows[0])
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestNewIntervalBuilderValidation(t *testing.T) {
	conv := converter.NewTypeConverter(nil)
	b := newBatch([]string{"Name", "Depth", "pct_coarse"})

	_, _, err := NewIntervalBuilder(b, DefaultColumnMap(), nil, DefaultConfig(), conv)
	assert.ErrorIs(t, err, ErrMissingColumn, "X, Y and Zland are mapped by default")

	cols := ColumnMap{Name: "Name", Depth: "Depth", Classes: map[string]string{"Coarse": "pct_coarse"}}
	builder, unrecognized, err := NewIntervalBuilder(b, cols, []string{"Coarse"}, DefaultConfig(), conv)
	require.NoError(t, err)
	assert.Empty(t, unrecognized)
	assert.Equal(t, []string{"pct_coarse"}, builder.classCols)

	cols.Classes = map[string]string{"Medium": "pct_coarse"}
	_, _, err = NewIntervalBuilder(b, cols, []string{"Coarse"}, DefaultConfig(), conv)
	assert.ErrorIs(t, err, ErrUnknownClass)

	cols.Classes = map[string]string{"Coarse": "pct_fine"}
	_, _, err = NewIntervalBuilder(b, cols, []string{"Coarse"}, DefaultConfig(), conv)
	assert.ErrorIs(t, err, ErrMissingColumn)

	cfg := DefaultConfig()
	cfg.HSULayers = 1
	_, _, err = NewIntervalBuilder(b, ColumnMap{Name: "Name", Depth: "Depth"}, nil, cfg, conv)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, _, err = NewIntervalBuilder(b, ColumnMap{Name: "Name"}, nil, DefaultConfig(), conv)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestBuildRowHSU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HSULayers = 2

	b := newBatch([]string{"Name", "Depth", "hsu_1", "hsu_2"}, []interface{}{"W1", 5, 1, "-999"})
	builder, _ := newBuilder(t, b, ColumnMap{Name: "Name", Depth: "Depth"}, nil, cfg)

	row, err := builder.Build(0, b.Rows[0])
	require.NoError(t, err)
	require.Len(t, row.Interval.HSU, 2)
	assert.True(t, row.Interval.HSU[0].Equal(model.Some(1)))
	assert.True(t, row.Interval.HSU[1].IsNA())
}
