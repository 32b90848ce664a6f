// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// SourceConnector is a database that SQL sources read batches from
type SourceConnector interface {
	DB() *sql.DB
	// DriverName is the database/sql driver, needed to wrap DB with sqlx
	DriverName() string
	Validate(ctx context.Context) error
	Close() error
}

// Pool sizes a connection pool. Zero values keep the database/sql defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

func (p Pool) apply(db *sql.DB) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		db.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.MaxIdleTime)
	}
}

// openPool opens a pool and pings it within timeout; the pool is closed again if the ping fails
func openPool(ctx context.Context, driver, dsn string, pool Pool, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	pool.apply(db)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func logPoolStats(logger *zap.Logger, database string, db *sql.DB) {
	s := db.Stats()
	logger.Debug("Connection pool stats",
		zap.String("database", database),
		zap.Int("open", s.OpenConnections),
		zap.Int("inUse", s.InUse),
		zap.Int("idle", s.Idle),
		zap.Int("maxOpen", s.MaxOpenConnections),
		zap.Int64("waitCount", s.WaitCount),
		zap.Duration("waitDuration", s.WaitDuration))
}
