// pkg/model/batch.go
package model

// Row is one input record keyed by column name
type Row map[string]interface{}

// Batch is a tabular input: an ordered header and its rows
type Batch struct {
	Source  string
	Columns []string
	Rows    []Row
}

// NewBatch creates an empty batch with the given header
func NewBatch(source string, columns []string) *Batch {
	return &Batch{
		Source:  source,
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0),
	}
}

// HasColumn reports whether the header contains name
func (b *Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row built from values in header order
func (b *Batch) Append(values ...interface{}) {
	row := make(Row, len(b.Columns))
	for i, col := range b.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = nil
		}
	}
	b.Rows = append(b.Rows, row)
}

// Len returns the number of rows
func (b *Batch) Len() int {
	return len(b.Rows)
}
