// Package db wires the pgx connection pool and the request-scoped
// transaction/connection context pattern shared by every repository method.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig mirrors the pool-sizing fields of the configuration bag (§6).
type PoolConfig struct {
	MaxConns      int32
	MinConns      int32
	IdleTimeout   time.Duration
	ConnTimeout   time.Duration
}

func NewPool(ctx context.Context, databaseURL string, cfg PoolConfig) (*pgxpool.Pool, error) {
	parsed, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	parsed.MaxConns = cfg.MaxConns
	parsed.MinConns = cfg.MinConns
	if cfg.IdleTimeout > 0 {
		parsed.MaxConnIdleTime = cfg.IdleTimeout
	}
	if cfg.ConnTimeout > 0 {
		parsed.ConnConfig.ConnectTimeout = cfg.ConnTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
