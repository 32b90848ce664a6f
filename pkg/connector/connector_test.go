package connector

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPoolApply(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	Pool{MaxOpen: 7, MaxIdle: 2, MaxLifetime: time.Minute}.apply(db)
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)

	// zero values leave the previous settings alone
	Pool{}.apply(db)
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)

	logPoolStats(zaptest.NewLogger(t), "lithology", db)
}

func TestOpenPoolUnknownDriver(t *testing.T) {
	db, err := openPool(context.Background(), "no-such-driver", "dsn", Pool{}, time.Second)
	assert.Error(t, err)
	assert.Nil(t, db)
}
