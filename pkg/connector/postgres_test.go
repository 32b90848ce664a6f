package connector

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/texture-ingress/pkg/config"
)

func newMockPostgres(t *testing.T) (*PostgresConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresConnectorFromDB(db, &config.PostgresConfig{Database: "lithology"}, zaptest.NewLogger(t)), mock
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, `"public"."texture"`, QualifiedName("public", "texture"))
	assert.Equal(t, `"texture"`, QualifiedName("", "texture"))
	assert.Equal(t, `"odd""name"`, QualifiedName("", `odd"name`))
}

func TestBatchInsert(t *testing.T) {
	c, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "public"."texture" ("ID", "n") VALUES ($1, $2), ($3, $4)`)).
		WithArgs(1, 1, 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "public"."texture" ("ID", "n") VALUES ($1, $2)`)).
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := c.BatchInsert(context.Background(), "public", "texture", []string{"ID", "n"},
		[][]interface{}{{1, 1}, {1, 2}, {2, 1}}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertEmpty(t *testing.T) {
	c, mock := newMockPostgres(t)

	n, err := c.BatchInsert(context.Background(), "public", "texture", []string{"ID"}, nil, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertRollsBack(t *testing.T) {
	c, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	_, err := c.BatchInsert(context.Background(), "public", "texture", []string{"ID"},
		[][]interface{}{{1}}, 10)
	assert.ErrorContains(t, err, "unique violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertRowWidth(t *testing.T) {
	c, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := c.BatchInsert(context.Background(), "public", "texture", []string{"ID", "n"},
		[][]interface{}{{1}}, 10)
	assert.ErrorContains(t, err, "row 0 has 1 values for 2 columns")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTable(t *testing.T) {
	c, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "geo"."texture"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "geo"."texture" ("ID") VALUES ($1)`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := c.ReplaceTable(context.Background(), "geo", "texture", []string{"ID"}, [][]interface{}{{7}}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableIfNotExists(t *testing.T) {
	c, mock := newMockPostgres(t)
	ctx := context.Background()
	defs := []string{`"ID" INTEGER NOT NULL`, `"n" INTEGER NOT NULL`}

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("public", "texture").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS \"public\".\"texture\" (\n\t\"ID\" INTEGER NOT NULL,\n\t\"n\" INTEGER NOT NULL,\n\tPRIMARY KEY (\"ID\", \"n\")\n)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.CreateTableIfNotExists(ctx, "public", "texture", defs, []string{"ID", "n"}))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("public", "texture").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, c.CreateTableIfNotExists(ctx, "public", "texture", defs, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaAndValidate(t *testing.T) {
	c, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "audit"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version()")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 15.4"))

	require.NoError(t, c.EnsureSchema(ctx, "audit"))
	require.NoError(t, c.Validate(ctx))
	assert.Equal(t, "pgx", c.DriverName())
	assert.NoError(t, mock.ExpectationsWereMet())
}
