package ingest

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/texture-ingress/pkg/config"
	"github.com/David-Botos/texture-ingress/pkg/connector"
	"github.com/David-Botos/texture-ingress/pkg/dataset"
	"github.com/David-Botos/texture-ingress/pkg/model"
)

func TestExportMetadata(t *testing.T) {
	meta, err := ExportMetadata("public", "texture", []string{"Coarse", "Fine"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"well_id", "seq", "n", "location", "x", "y", "zland", "top", "bottom", "placeholder",
		"Coarse", "Fine", "hsu_1", "hsu_2",
	}, meta.ColumnNames())
	assert.Equal(t, []string{"well_id", "seq"}, meta.PrimaryKeys)
	assert.True(t, meta.GetColumnByName("Coarse").Nullable)

	_, err = ExportMetadata("public", "texture", []string{"Bottom"}, 0)
	assert.Error(t, err)

	_, err = ExportMetadata("public", "", nil, 0)
	assert.Error(t, err)
}

func TestExportRows(t *testing.T) {
	rows := ExportRows(sampleRecords(), 1, 1)
	require.Len(t, rows, 3)

	assert.Equal(t, []interface{}{1, 1, 1, "W1", nil, nil, 100.0, 0.0, 10.0, false, 0.4, nil}, rows[0])
	assert.Equal(t, []interface{}{1, 2, 2, "W1", nil, nil, 100.0, 10.0, 15.0, true, nil, nil}, rows[1])
	assert.Equal(t, []interface{}{2, 1, 1, "W2", 5.0, 6.0, nil, 0.0, 5.0, false, 1.0, nil}, rows[2])
}

func TestExporterExistingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := zaptest.NewLogger(t)
	pg := connector.NewPostgresConnectorFromDB(db, &config.PostgresConfig{Database: "lithology"}, logger)

	d, err := dataset.New([]string{"Coarse"}, logger)
	require.NoError(t, err)
	batch := model.NewBatch("logs", []string{"Name", "Depth", "Coarse"})
	batch.Append("W1", 10.0, 0.25)
	batch.Append("W1", 20.0, 0.75)
	_, err = d.AddWells(batch, dataset.ColumnMap{Name: "Name", Depth: "Depth"}, dataset.DefaultAddOptions())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "lith"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("lith", "texture").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "lith"."texture"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// one row per statement
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "lith"."texture"`)).
		WithArgs(1, 1, 1, "W1", nil, nil, nil, nil, 10.0, false, 0.25).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "lith"."texture"`)).
		WithArgs(1, 2, 2, "W1", nil, nil, nil, nil, 20.0, false, 0.75).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewExporter(pg, 1, logger).Export(context.Background(), d, "lith", "texture")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRowsDuplicateIndex(t *testing.T) {
	d, err := dataset.New([]string{"Coarse"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	batch := model.NewBatch("logs", []string{"Name", "Depth", "Coarse", "n"})
	batch.Append("W1", 10.0, 0.25, 3)
	batch.Append("W1", 20.0, 0.75, 3)
	res, err := d.AddWells(batch, dataset.ColumnMap{Name: "Name", Depth: "Depth", N: "n"}, dataset.DefaultAddOptions())
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	require.Equal(t, model.AnomalyDuplicateIndex, res.Anomalies[0].Kind)

	meta, err := ExportMetadata("", "texture", d.Classes(), 0)
	require.NoError(t, err)
	rows := ExportRows(d.Records(), 1, 0)
	require.Len(t, rows, 2)

	keys := make(map[[2]interface{}]bool)
	for _, row := range rows {
		require.Len(t, row, len(meta.Columns))
		assert.Equal(t, 3, row[2], "n is exported as given")
		key := [2]interface{}{row[0], row[1]}
		assert.False(t, keys[key], "primary key %v repeats", key)
		keys[key] = true
	}
}
