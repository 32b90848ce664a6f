// pkg/dataset/reader.go
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

// ReadOptions controls parsing of a written dataset file
type ReadOptions struct {
	Layout    Layout
	Separator string
	Header    bool // first line is a header and is skipped
	NATokens  []string
}

// DefaultReadOptions matches files produced for Texture2Par
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Layout:    LayoutTexture2Par,
		Separator: "\t",
		Header:    true,
		NATokens:  []string{"-99", "-999"},
	}
}

// ReadRecords parses a dataset file. Columns beyond the layout are ignored.
func ReadRecords(r io.Reader, classes []string, layers int, opts ReadOptions) ([]Record, error) {
	sep, err := ParseSeparator(opts.Separator)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	conv := converter.NewTypeConverterWithConfig(nil, converter.TypeConverterConfig{
		NATokens:          opts.NATokens,
		EmptyStringAsNull: true,
		TrimSpaces:        true,
	})

	fixed := 5
	if opts.Layout == LayoutTexture2Par {
		fixed = 7
	}
	want := fixed + len(classes) + layers

	var records []Record
	line := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && opts.Header {
			continue
		}
		if len(fields) < want {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, want, len(fields))
		}

		rec, err := parseRecord(conv, fields, opts.Layout, len(classes), layers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRecord(conv *converter.TypeConverter, f []string, layout Layout, classes, layers int) (Record, error) {
	var rec Record
	var err error
	pos := 0

	next := func() string {
		s := f[pos]
		pos++
		return s
	}
	integer := func(name string) (int, error) {
		n, ok, err := conv.Int(next())
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		if !ok {
			return 0, fmt.Errorf("%s is missing", name)
		}
		return n, nil
	}
	value := func(name string) (model.Value, error) {
		v, err := conv.Value(next())
		if err != nil {
			return model.NA(), fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	if layout == LayoutTexture2Par {
		rec.Well.Key.Name = conv.String(next())
	}
	if rec.Well.ID, err = integer("ID"); err != nil {
		return rec, err
	}
	if rec.Interval.N, err = integer("n"); err != nil {
		return rec, err
	}
	rec.Interval.WellID = rec.Well.ID

	var bottom model.Value
	if layout == LayoutTexture2Par {
		if rec.Well.Key.X, err = value("X"); err != nil {
			return rec, err
		}
		if rec.Well.Key.Y, err = value("Y"); err != nil {
			return rec, err
		}
		if rec.Well.Elevation, err = value("Zland"); err != nil {
			return rec, err
		}
		if bottom, err = value("Depth"); err != nil {
			return rec, err
		}
		rec.Interval.Top = model.NA()
	} else {
		if rec.Interval.Top, err = value("Top"); err != nil {
			return rec, err
		}
		if bottom, err = value("Bottom"); err != nil {
			return rec, err
		}
		if rec.Well.Elevation, err = value("Zland"); err != nil {
			return rec, err
		}
		rec.Well.Key.X, rec.Well.Key.Y = model.NA(), model.NA()
	}
	b, ok := bottom.Get()
	if !ok {
		return rec, fmt.Errorf("%w: missing bottom depth", ErrInvalidDepth)
	}
	rec.Interval.Bottom = b

	rec.Interval.Classes = make([]model.Value, classes)
	for i := range rec.Interval.Classes {
		if rec.Interval.Classes[i], err = value("class"); err != nil {
			return rec, err
		}
	}
	rec.Interval.HSU = make([]model.Value, layers)
	for i := range rec.Interval.HSU {
		if rec.Interval.HSU[i], err = value("hsu"); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// ReadFile loads a Texture2Par layout file into a new Dataset. Well identity comes from the
// Location, X and Y columns; each interval's top is the previous depth of its well (0 for the
// first). Wells added later continue numbering after the highest ID in the file.
func ReadFile(path string, classes []string, logger *zap.Logger, cfg Config, opts ReadOptions) (*Dataset, error) {
	if opts.Layout != LayoutTexture2Par {
		return nil, errors.New("loading a dataset requires the texture2par layout")
	}

	d, err := NewWithConfig(classes, logger, cfg, nil)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f, classes, cfg.HSULayers, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Well.ID != records[j].Well.ID {
			return records[i].Well.ID < records[j].Well.ID
		}
		return records[i].Interval.N < records[j].Interval.N
	})

	batchID := uuid.New().String()
	for _, rec := range records {
		id := rec.Well.ID
		if w, ok := d.registry.Well(id); ok {
			if !w.Key.Equal(rec.Well.Key) {
				return nil, fmt.Errorf("%w: well ID %d names both %s and %s",
					ErrInvalidWellKey, id, w.Key, rec.Well.Key)
			}
		} else if err := d.registry.restore(id, rec.Well.Key, rec.Well.Elevation); err != nil {
			return nil, err
		}

		st, ok := d.wells[id]
		if !ok {
			st = &wellState{}
			d.wells[id] = st
		}
		top := 0.0
		if n := len(st.intervals); n > 0 {
			top = st.intervals[n-1].Bottom
		}

		iv := rec.Interval
		iv.Top = model.Some(top)
		iv.Seq = d.seq
		iv.BatchID = batchID
		d.seq++
		st.intervals = append(st.intervals, iv)
	}

	for _, st := range d.wells {
		SortIntervals(st.intervals)
	}

	d.logger.Info("Loaded dataset",
		zap.String("path", path),
		zap.Int("wells", d.registry.Len()),
		zap.Int("intervals", len(records)))

	return d, nil
}
