// pkg/connector/factory.go
package connector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/config"
)

// ConnectorFactory creates database connectors on demand and hands out the same
// connection to every caller of a backend until CloseAll.
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger

	postgres  *PostgresConnector
	snowflake *SnowflakeConnector
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// WithPostgres makes the factory hand out an existing PostgreSQL connector
func (f *ConnectorFactory) WithPostgres(c *PostgresConnector) *ConnectorFactory {
	f.postgres = c
	return f
}

// WithSnowflake makes the factory hand out an existing Snowflake connector
func (f *ConnectorFactory) WithSnowflake(c *SnowflakeConnector) *ConnectorFactory {
	f.snowflake = c
	return f
}

// Snowflake returns the shared Snowflake connector, connecting on first use
func (f *ConnectorFactory) Snowflake(ctx context.Context) (*SnowflakeConnector, error) {
	if f.snowflake != nil {
		return f.snowflake, nil
	}

	f.logger.Info("Creating Snowflake connector")

	sfCfg, err := f.cfg.Snowflake()
	if err != nil {
		return nil, err
	}
	connector, err := NewSnowflakeConnector(ctx, sfCfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
	}
	if err := connector.Validate(ctx); err != nil {
		connector.Close()
		return nil, err
	}

	f.snowflake = connector
	return connector, nil
}

// Postgres returns the shared PostgreSQL connector, connecting on first use
func (f *ConnectorFactory) Postgres(ctx context.Context) (*PostgresConnector, error) {
	if f.postgres != nil {
		return f.postgres, nil
	}

	f.logger.Info("Creating PostgreSQL connector")

	pgCfg, err := f.cfg.Postgres()
	if err != nil {
		return nil, err
	}
	connector, err := NewPostgresConnector(ctx, pgCfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}
	if err := connector.Validate(ctx); err != nil {
		connector.Close()
		return nil, err
	}

	f.postgres = connector
	return connector, nil
}

// Source returns the connector serving a SQL source kind
func (f *ConnectorFactory) Source(ctx context.Context, kind config.SourceKind) (SourceConnector, error) {
	switch kind {
	case config.SourcePostgres:
		return f.Postgres(ctx)
	case config.SourceSnowflake:
		return f.Snowflake(ctx)
	default:
		return nil, fmt.Errorf("no database connector for source type %q", kind)
	}
}

// CloseAll closes every connector created so far
func (f *ConnectorFactory) CloseAll() error {
	var errs []error
	if f.snowflake != nil {
		if err := f.snowflake.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing Snowflake: %w", err))
		}
		f.snowflake = nil
	}
	if f.postgres != nil {
		if err := f.postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing PostgreSQL: %w", err))
		}
		f.postgres = nil
	}
	return errors.Join(errs...)
}
