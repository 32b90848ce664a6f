// pkg/dataset/builder.go
package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

// builtRow is a validated input row that has not been attached to a well yet
type builtRow struct {
	Row       int
	Key       model.WellKey
	Elevation model.Value
	Interval  model.Interval
}

// IntervalBuilder turns raw batch rows into normalized intervals
type IntervalBuilder struct {
	cols           ColumnMap
	classCols      []string // column per configured class, "" when absent from the batch
	hsuCols        []string
	conv           *converter.TypeConverter
	rejectNegative bool
}

// NewIntervalBuilder validates cols against the batch header once and returns a builder
// along with the batch columns nothing consumes.
func NewIntervalBuilder(
	batch *model.Batch,
	cols ColumnMap,
	classes []string,
	cfg Config,
	conv *converter.TypeConverter,
) (*IntervalBuilder, []string, error) {
	if cols.Name == "" {
		return nil, nil, fmt.Errorf("%w: well name column not configured", ErrMissingColumn)
	}
	if cols.Depth == "" {
		return nil, nil, fmt.Errorf("%w: depth column not configured", ErrMissingColumn)
	}

	consumed := make(map[string]bool)
	for _, col := range []string{cols.Name, cols.X, cols.Y, cols.Zland, cols.Depth, cols.DepthTop, cols.N} {
		if col == "" {
			continue
		}
		if !batch.HasColumn(col) {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
		consumed[col] = true
	}

	classCols := make([]string, len(classes))
	if cols.Classes == nil {
		for i, class := range classes {
			if batch.HasColumn(class) {
				classCols[i] = class
				consumed[class] = true
			}
		}
	} else {
		index := make(map[string]int, len(classes))
		for i, class := range classes {
			index[class] = i
		}
		// sorted for deterministic error reporting
		keys := make([]string, 0, len(cols.Classes))
		for class := range cols.Classes {
			keys = append(keys, class)
		}
		sort.Strings(keys)
		for _, class := range keys {
			col := cols.Classes[class]
			i, ok := index[class]
			if !ok {
				return nil, nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
			}
			if !batch.HasColumn(col) {
				return nil, nil, fmt.Errorf("%w: %q for class %q", ErrMissingColumn, col, class)
			}
			classCols[i] = col
			consumed[col] = true
		}
	}

	hsuCols := make([]string, cfg.HSULayers)
	for i := range hsuCols {
		col := HSUColumn(i + 1)
		if !batch.HasColumn(col) {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
		hsuCols[i] = col
		consumed[col] = true
	}

	var unrecognized []string
	for _, col := range batch.Columns {
		if !consumed[col] {
			unrecognized = append(unrecognized, col)
		}
	}

	return &IntervalBuilder{
		cols:           cols,
		classCols:      classCols,
		hsuCols:        hsuCols,
		conv:           conv,
		rejectNegative: cfg.RejectNegativeDepth,
	}, unrecognized, nil
}

// HasTop reports whether the batch supplies top depths
func (b *IntervalBuilder) HasTop() bool {
	return b.cols.DepthTop != ""
}

// Build validates and converts one row
func (b *IntervalBuilder) Build(index int, row model.Row) (builtRow, error) {
	key, err := b.key(index, row)
	if err != nil {
		return builtRow{}, err
	}

	out := builtRow{Row: index, Key: key, Elevation: model.NA()}

	if b.cols.Zland != "" {
		out.Elevation, err = b.conv.Value(row[b.cols.Zland])
		if err != nil {
			return builtRow{}, rowError(index, key, ErrInvalidValue, "elevation %v: %v", row[b.cols.Zland], err)
		}
	}

	iv := model.Interval{
		Top:     model.NA(),
		Classes: make([]model.Value, len(b.classCols)),
		HSU:     make([]model.Value, len(b.hsuCols)),
		Seq:     index,
	}

	bottom, err := b.depth(index, key, row, b.cols.Depth, "bottom")
	if err != nil {
		return builtRow{}, err
	}
	iv.Bottom = bottom

	if b.cols.DepthTop != "" {
		top, err := b.depth(index, key, row, b.cols.DepthTop, "top")
		if err != nil {
			return builtRow{}, err
		}
		if top > bottom {
			return builtRow{}, rowError(index, key, ErrInvalidDepth, "top %v below bottom %v", top, bottom)
		}
		iv.Top = model.Some(top)
	}

	if b.cols.N != "" {
		n, ok, err := b.conv.Int(row[b.cols.N])
		if err != nil {
			return builtRow{}, rowError(index, key, ErrInvalidIndex, "%v: %v", row[b.cols.N], err)
		}
		if !ok {
			return builtRow{}, rowError(index, key, ErrInvalidIndex, "missing interval index")
		}
		iv.N = n
		iv.ExplicitN = true
	}

	for i, col := range b.classCols {
		if col == "" {
			iv.Classes[i] = model.NA()
			continue
		}
		v, err := b.conv.Value(row[col])
		if err != nil {
			return builtRow{}, rowError(index, key, ErrInvalidValue, "column %s: %v", col, err)
		}
		iv.Classes[i] = v
	}

	for i, col := range b.hsuCols {
		v, err := b.conv.Value(row[col])
		if err != nil {
			return builtRow{}, rowError(index, key, ErrInvalidValue, "column %s: %v", col, err)
		}
		iv.HSU[i] = v
	}

	out.Interval = iv
	return out, nil
}

func (b *IntervalBuilder) key(index int, row model.Row) (model.WellKey, error) {
	key := model.WellKey{
		Name: b.conv.String(row[b.cols.Name]),
		X:    model.NA(),
		Y:    model.NA(),
	}
	if !key.Valid() {
		return key, rowError(index, key, ErrInvalidWellKey, "missing well name")
	}
	if strings.ContainsAny(key.Name, "\r\n") {
		return key, rowError(index, key, ErrInvalidWellKey, "well name %q contains a line break", key.Name)
	}

	var err error
	if b.cols.X != "" {
		if key.X, err = b.conv.Value(row[b.cols.X]); err != nil {
			return key, rowError(index, key, ErrInvalidWellKey, "x coordinate %v: %v", row[b.cols.X], err)
		}
	}
	if b.cols.Y != "" {
		if key.Y, err = b.conv.Value(row[b.cols.Y]); err != nil {
			return key, rowError(index, key, ErrInvalidWellKey, "y coordinate %v: %v", row[b.cols.Y], err)
		}
	}
	return key, nil
}

func (b *IntervalBuilder) depth(index int, key model.WellKey, row model.Row, col, which string) (float64, error) {
	v, err := b.conv.Value(row[col])
	if err != nil {
		return 0, rowError(index, key, ErrInvalidDepth, "%s depth %v: %v", which, row[col], err)
	}
	d, ok := v.Get()
	if !ok {
		return 0, rowError(index, key, ErrInvalidDepth, "missing %s depth", which)
	}
	if b.rejectNegative && d < 0 {
		return 0, rowError(index, key, ErrInvalidDepth, "negative %s depth %v", which, d)
	}
	return d, nil
}
