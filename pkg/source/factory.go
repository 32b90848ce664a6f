// pkg/source/factory.go
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/config"
	"github.com/David-Botos/texture-ingress/pkg/connector"
)

// New builds the source a job describes. Database sources share the factory's connections.
func New(
	ctx context.Context,
	spec config.SourceSpec,
	conns *connector.ConnectorFactory,
	timeout time.Duration,
	logger *zap.Logger,
) (Source, error) {
	switch spec.Kind {
	case config.SourceCSV:
		return NewCSVSource(spec.Name, spec.Path, spec.Delimiter, logger), nil
	case config.SourcePostgres, config.SourceSnowflake:
		if conns == nil {
			return nil, fmt.Errorf("source %s: no database connections available", spec.Name)
		}
		conn, err := conns.Source(ctx, spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.Name, err)
		}
		db := sqlx.NewDb(conn.DB(), conn.DriverName())
		return NewSQLSource(spec.Name, db, spec.Query, spec.Table, timeout, logger)
	default:
		return nil, fmt.Errorf("source %s: unsupported type %q", spec.Name, spec.Kind)
	}
}
