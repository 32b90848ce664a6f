// pkg/welllog/welllog.go
package welllog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

var (
	ErrLengthMismatch  = errors.New("percent coarse and depth lists differ in length")
	ErrMissingGeozones = errors.New("geozones are required")
	ErrUnknownClass    = errors.New("unknown texture class")
)

// Point is one sampled depth of a well
type Point struct {
	WellName string
	Well     int
	Point    int // 1-based within the well
	PC       model.Value
	X        model.Value
	Y        model.Value
	Zland    model.Value
	Depth    float64
	Geozones []model.Value // one per layer, empty when the file has none
}

// File is a point well log: one row per sample with a single percent coarse value
type File struct {
	nlay   int
	points []Point
}

// New creates an empty well log. nlay > 0 adds geozone columns 1..nlay.
func New(nlay int) (*File, error) {
	if nlay < 0 {
		return nil, fmt.Errorf("nlay cannot be negative, got %d", nlay)
	}
	return &File{nlay: nlay}, nil
}

// Columns returns the header names in file order
func (f *File) Columns() []string {
	cols := []string{"WellName", "Well", "Point", "PC", "X", "Y", "Zland", "Depth"}
	for i := 1; i <= f.nlay; i++ {
		cols = append(cols, strconv.Itoa(i))
	}
	return cols
}

func (f *File) Layers() int { return f.nlay }

func (f *File) Points() []Point {
	out := make([]Point, len(f.points))
	copy(out, f.points)
	return out
}

// AddWell appends a well after the highest well number and returns that number. The
// geozones apply to every point of the well.
func (f *File) AddWell(name string, x, y, zland model.Value, pc []model.Value, depth []float64, geozones []model.Value) (int, error) {
	if len(pc) != len(depth) {
		return 0, fmt.Errorf("%w: %d PC values, %d depths", ErrLengthMismatch, len(pc), len(depth))
	}
	if f.nlay > 0 && len(geozones) != f.nlay {
		return 0, fmt.Errorf("%w: file has %d layers, got %d", ErrMissingGeozones, f.nlay, len(geozones))
	}

	well := f.maxWell() + 1
	for i := range pc {
		p := Point{
			WellName: name,
			Well:     well,
			Point:    i + 1,
			PC:       pc[i],
			X:        x,
			Y:        y,
			Zland:    zland,
			Depth:    depth[i],
		}
		if f.nlay > 0 {
			p.Geozones = append([]model.Value(nil), geozones...)
		}
		f.points = append(f.points, p)
	}
	return well, nil
}

func (f *File) maxWell() int {
	highest := 0
	for _, p := range f.points {
		if p.Well > highest {
			highest = p.Well
		}
	}
	return highest
}

// WellCoords returns each well's location once, in first-seen order
func (f *File) WellCoords() []model.WellCoord {
	seen := make(map[int]bool)
	var out []model.WellCoord
	for _, p := range f.points {
		if seen[p.Well] {
			continue
		}
		seen[p.Well] = true
		out = append(out, model.WellCoord{ID: p.Well, Name: p.WellName, X: p.X, Y: p.Y})
	}
	return out
}

// FromDataset builds a well log from one texture class of a dataset. Each measured interval
// becomes a point at its bottom depth; placeholders are left out and geozones come from the
// interval's HSU values.
func FromDataset(d *dataset.Dataset, class string) (*File, error) {
	col := -1
	for i, c := range d.Classes() {
		if c == class {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	f, err := New(d.Config().HSULayers)
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int)
	for _, rec := range d.Records() {
		iv := rec.Interval
		if iv.Placeholder {
			continue
		}
		counts[rec.Well.ID]++
		p := Point{
			WellName: rec.Well.Key.Name,
			Well:     rec.Well.ID,
			Point:    counts[rec.Well.ID],
			PC:       iv.Classes[col],
			X:        rec.Well.Key.X,
			Y:        rec.Well.Key.Y,
			Zland:    rec.Well.Elevation,
			Depth:    iv.Bottom,
		}
		if f.nlay > 0 {
			p.Geozones = make([]model.Value, f.nlay)
			copy(p.Geozones, iv.HSU)
		}
		f.points = append(f.points, p)
	}
	return f, nil
}

// Write renders the log with the dataset writer's separator, NA token and precision. The
// layout option does not apply.
func (f *File) Write(w io.Writer, opts dataset.WriteOptions) error {
	sep, err := dataset.ParseSeparator(opts.Separator)
	if err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = sep

	if opts.Header {
		if err := cw.Write(f.Columns()); err != nil {
			return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
		}
	}

	value := func(v model.Value) string {
		x, ok := v.Get()
		if !ok {
			return opts.NAToken
		}
		return strconv.FormatFloat(x, 'f', opts.Precision, 64)
	}
	for _, p := range f.points {
		fields := []string{
			p.WellName,
			strconv.Itoa(p.Well),
			strconv.Itoa(p.Point),
			value(p.PC),
			value(p.X),
			value(p.Y),
			value(p.Zland),
			strconv.FormatFloat(p.Depth, 'f', opts.Precision, 64),
		}
		for i := 0; i < f.nlay; i++ {
			gz := model.NA()
			if i < len(p.Geozones) {
				gz = p.Geozones[i]
			}
			fields = append(fields, value(gz))
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
	}
	return nil
}

// WriteFile writes the log through a temporary file renamed into place
func (f *File) WriteFile(path string, opts dataset.WriteOptions) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = f.Write(tmp, opts); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrWriteFailure, err)
	}
	return nil
}

// Read parses a well log. The first line is skipped as the header, -99 and -999 read as NA
// and columns past the geozones are ignored.
func Read(r io.Reader, nlay int, separator string) (*File, error) {
	f, err := New(nlay)
	if err != nil {
		return nil, err
	}
	sep, err := dataset.ParseSeparator(separator)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	conv := converter.NewTypeConverter(nil)
	want := len(f.Columns())
	header := true
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read well log: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(fields) < want {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, want, len(fields))
		}
		p, err := parsePoint(conv, fields, nlay)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		f.points = append(f.points, p)
	}
	return f, nil
}

// ReadFile opens path and reads it with Read
func ReadFile(path string, nlay int, separator string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open well log: %w", err)
	}
	defer in.Close()
	return Read(in, nlay, separator)
}

func parsePoint(conv *converter.TypeConverter, fields []string, nlay int) (Point, error) {
	p := Point{WellName: conv.String(fields[0])}

	integer := func(name, cell string) (int, error) {
		n, ok, err := conv.Int(cell)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		if !ok {
			return 0, fmt.Errorf("%s is missing", name)
		}
		return n, nil
	}
	var err error
	if p.Well, err = integer("Well", fields[1]); err != nil {
		return p, err
	}
	if p.Point, err = integer("Point", fields[2]); err != nil {
		return p, err
	}

	values := make([]model.Value, 5+nlay)
	names := []string{"PC", "X", "Y", "Zland", "Depth"}
	for i := range values {
		if values[i], err = conv.Value(fields[3+i]); err != nil {
			name := "geozone"
			if i < len(names) {
				name = names[i]
			}
			return p, fmt.Errorf("%s: %w", name, err)
		}
	}
	p.PC, p.X, p.Y, p.Zland = values[0], values[1], values[2], values[3]
	depth, ok := values[4].Get()
	if !ok {
		return p, errors.New("depth is missing")
	}
	p.Depth = depth
	if nlay > 0 {
		p.Geozones = values[5:]
	}
	return p, nil
}
