// pkg/ingest/export.go
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/connector"
	"github.com/David-Botos/texture-ingress/pkg/converter"
	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

// Fixed columns of the export table, ahead of the class and HSU columns. seq is the
// interval's position within its well in file order; n can repeat when explicit indexes do.
var exportColumns = []model.Column{
	{Name: "well_id", DataType: "int", IsPrimaryKey: true},
	{Name: "seq", DataType: "int", IsPrimaryKey: true},
	{Name: "n", DataType: "int"},
	{Name: "location", DataType: "text"},
	{Name: "x", DataType: "float", Nullable: true},
	{Name: "y", DataType: "float", Nullable: true},
	{Name: "zland", DataType: "float", Nullable: true},
	{Name: "top", DataType: "float", Nullable: true},
	{Name: "bottom", DataType: "float"},
	{Name: "placeholder", DataType: "bool"},
}

// ExportMetadata describes the table a dataset with these classes and layers is exported to
func ExportMetadata(schema, table string, classes []string, layers int) (*model.TableMetadata, error) {
	if table == "" {
		return nil, errors.New("export table name cannot be empty")
	}

	meta := &model.TableMetadata{
		Schema:  schema,
		Table:   table,
		Columns: append([]model.Column(nil), exportColumns...),
	}
	for _, col := range exportColumns {
		if col.IsPrimaryKey {
			meta.PrimaryKeys = append(meta.PrimaryKeys, col.Name)
		}
	}

	extra := append([]string(nil), classes...)
	for i := 1; i <= layers; i++ {
		extra = append(extra, dataset.HSUColumn(i))
	}
	for _, name := range extra {
		if meta.GetColumnByName(name) != nil {
			return nil, fmt.Errorf("column %q clashes with another export column", name)
		}
		meta.Columns = append(meta.Columns, model.Column{Name: name, DataType: "float", Nullable: true})
	}

	return meta, nil
}

// ExportRows flattens records into rows matching ExportMetadata's column order
func ExportRows(records []dataset.Record, classes, layers int) [][]interface{} {
	rows := make([][]interface{}, len(records))
	seq := 0
	for i, r := range records {
		if i == 0 || r.Well.ID != records[i-1].Well.ID {
			seq = 0
		}
		seq++

		iv := r.Interval
		row := make([]interface{}, 0, len(exportColumns)+classes+layers)
		row = append(row,
			r.Well.ID,
			seq,
			iv.N,
			r.Well.Key.Name,
			converter.ValueForPostgres(r.Well.Key.X),
			converter.ValueForPostgres(r.Well.Key.Y),
			converter.ValueForPostgres(r.Well.Elevation),
			converter.ValueForPostgres(iv.Top),
			iv.Bottom,
			iv.Placeholder,
		)
		for c := 0; c < classes; c++ {
			v := model.NA()
			if c < len(iv.Classes) {
				v = iv.Classes[c]
			}
			row = append(row, converter.ValueForPostgres(v))
		}
		for l := 0; l < layers; l++ {
			v := model.NA()
			if l < len(iv.HSU) {
				v = iv.HSU[l]
			}
			row = append(row, converter.ValueForPostgres(v))
		}
		rows[i] = row
	}
	return rows
}

// Exporter copies a dataset into a PostgreSQL table, replacing its previous contents
type Exporter struct {
	pg        *connector.PostgresConnector
	conv      *converter.TypeConverter
	batchSize int
	logger    *zap.Logger
}

// NewExporter creates an exporter writing batchSize rows per INSERT
func NewExporter(pg *connector.PostgresConnector, batchSize int, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		pg:        pg,
		conv:      converter.NewTypeConverter(logger),
		batchSize: batchSize,
		logger:    logger.Named("export"),
	}
}

// Export creates the table if needed and replaces its rows with the dataset
func (e *Exporter) Export(ctx context.Context, d *dataset.Dataset, schema, table string) (int64, error) {
	classes := d.Classes()
	layers := d.Config().HSULayers

	meta, err := ExportMetadata(schema, table, classes, layers)
	if err != nil {
		return 0, err
	}
	defs, err := e.conv.GenerateColumnDefinitions(meta)
	if err != nil {
		return 0, fmt.Errorf("failed to generate column definitions: %w", err)
	}

	if schema != "" {
		if err := e.pg.EnsureSchema(ctx, schema); err != nil {
			return 0, err
		}
	}
	if err := e.pg.CreateTableIfNotExists(ctx, schema, table, defs, meta.PrimaryKeys); err != nil {
		return 0, err
	}

	rows := ExportRows(d.Records(), len(classes), layers)
	inserted, err := e.pg.ReplaceTable(ctx, schema, table, meta.ColumnNames(), rows, e.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to export to %s: %w", connector.QualifiedName(schema, table), err)
	}

	e.logger.Info("Exported dataset",
		zap.String("table", connector.QualifiedName(schema, table)),
		zap.Int64("rows", inserted))

	return inserted, nil
}
