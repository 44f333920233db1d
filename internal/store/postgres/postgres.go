// Package postgres implements the store interface on top of a
// transactional Postgres connection pool, giving the ingestion core
// the atomic multi-table commit ClickHouse cannot provide.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store wraps a pgxpool.Pool with the logging conventions the rest of
// the ingestion core uses.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New opens a connection pool against dsn, retrying the initial ping
// with exponential backoff so a store started before its database is
// reachable doesn't immediately exit.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	pingErr := backoff.Retry(func() error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("postgres not yet reachable, retrying", zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", pingErr)
	}

	return &Store{pool: pool, logger: logger.Named("postgres_store")}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// observe logs the outcome and duration of a store operation, the
// ambient substitute for the Prometheus-backed metrics wrapper the
// teacher's repository layer uses — Prometheus itself is explicitly
// out of scope here.
func (s *Store) observe(op string, started time.Time, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Duration("duration", time.Since(started))}
	if err != nil {
		s.logger.Error("store operation failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("store operation completed", fields...)
}
