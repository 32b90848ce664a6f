// pkg/dataset/writer.go
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// Layout selects the column set of the output file
type Layout int

const (
	// LayoutStandard writes ID, n, Top, Bottom, Zland, classes
	LayoutStandard Layout = iota
	// LayoutTexture2Par writes Location, ID, n, X, Y, Zland, Depth, classes
	LayoutTexture2Par
)

func (l Layout) String() string {
	switch l {
	case LayoutStandard:
		return "standard"
	case LayoutTexture2Par:
		return "texture2par"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// ParseLayout parses the names produced by String; "" means standard
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return LayoutStandard, nil
	case "texture2par", "t2p":
		return LayoutTexture2Par, nil
	default:
		return LayoutStandard, fmt.Errorf("unknown layout %q", s)
	}
}

// ParseSeparator returns the single character a separator string names. Quotes and line
// breaks are not valid separators.
func ParseSeparator(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("separator must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid separator %q", s)
	}
	return r, nil
}

// WriteOptions controls the text rendering
type WriteOptions struct {
	Layout    Layout
	Separator string
	Header    bool
	NAToken   string
	Precision int // digits after the decimal point
}

// DefaultWriteOptions returns tab separated output with a header, -999 for NA and 5 decimals
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Layout:    LayoutStandard,
		Separator: "\t",
		Header:    true,
		NAToken:   "-999",
		Precision: 5,
	}
}

// FileWriter renders records into the fixed column layout
type FileWriter struct {
	classes []string
	layers  int
	opts    WriteOptions
}

// NewFileWriter creates a writer; empty separator or NA token fall back to the defaults
func NewFileWriter(classes []string, layers int, opts WriteOptions) *FileWriter {
	def := DefaultWriteOptions()
	if opts.Separator == "" {
		opts.Separator = def.Separator
	}
	if opts.NAToken == "" {
		opts.NAToken = def.NAToken
	}
	if opts.Precision < 0 {
		opts.Precision = def.Precision
	}
	return &FileWriter{
		classes: append([]string(nil), classes...),
		layers:  layers,
		opts:    opts,
	}
}

// Columns returns the header fields in output order
func (w *FileWriter) Columns() []string {
	var cols []string
	switch w.opts.Layout {
	case LayoutTexture2Par:
		cols = []string{"Location", "ID", "n", "X", "Y", "Zland", "Depth"}
	default:
		cols = []string{"ID", "n", "Top", "Bottom", "Zland"}
	}
	cols = append(cols, w.classes...)
	for i := 1; i <= w.layers; i++ {
		cols = append(cols, strconv.Itoa(i))
	}
	return cols
}

// Fields renders one record
func (w *FileWriter) Fields(r Record) []string {
	iv := r.Interval
	var fields []string
	switch w.opts.Layout {
	case LayoutTexture2Par:
		fields = []string{
			r.Well.Key.Name,
			strconv.Itoa(r.Well.ID),
			strconv.Itoa(iv.N),
			w.value(r.Well.Key.X),
			w.value(r.Well.Key.Y),
			w.value(r.Well.Elevation),
			w.float(iv.Bottom),
		}
	default:
		fields = []string{
			strconv.Itoa(r.Well.ID),
			strconv.Itoa(iv.N),
			w.value(iv.Top),
			w.float(iv.Bottom),
			w.value(r.Well.Elevation),
		}
	}
	for i := range w.classes {
		v := model.NA()
		if i < len(iv.Classes) {
			v = iv.Classes[i]
		}
		fields = append(fields, w.value(v))
	}
	for i := 0; i < w.layers; i++ {
		v := model.NA()
		if i < len(iv.HSU) {
			v = iv.HSU[i]
		}
		fields = append(fields, w.value(v))
	}
	return fields
}

// Write renders records to out. Fields holding the separator or a quote are quoted.
func (w *FileWriter) Write(out io.Writer, records []Record) error {
	sep, err := ParseSeparator(w.opts.Separator)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	cw := csv.NewWriter(out)
	cw.Comma = sep
	if w.opts.Header {
		if err := cw.Write(w.Columns()); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailure, err)
		}
	}
	for _, r := range records {
		if err := cw.Write(w.Fields(r)); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailure, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return nil
}

// WriteFile writes to a temporary file next to path and renames it into place, so a
// failed write never leaves a truncated file at path.
func (w *FileWriter) WriteFile(path string, records []Record) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file for %s: %w", ErrWriteFailure, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = w.Write(tmp, records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %w", ErrWriteFailure, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrWriteFailure, path, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrWriteFailure, path, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: renaming into %s: %w", ErrWriteFailure, path, err)
	}
	return nil
}

func (w *FileWriter) value(v model.Value) string {
	f, ok := v.Get()
	if !ok {
		return w.opts.NAToken
	}
	return w.float(f)
}

func (w *FileWriter) float(f float64) string {
	return strconv.FormatFloat(f, 'f', w.opts.Precision, 64)
}
