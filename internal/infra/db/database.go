package db

import (
	"context"
	"fmt"
	"runtime"

	"homecare-booking/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool sized from available parallelism, clamped to the
// configured bounds. The returned cleanup closes the pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.BuildDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = poolSize(cfg)
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// poolSize derives the connection count from GOMAXPROCS rather than a fixed
// constant, keeping it inside the configured bounds.
func poolSize(cfg config.DBConfig) int32 {
	size := int32(runtime.GOMAXPROCS(0)) * 4
	if size < cfg.MinConns {
		size = cfg.MinConns
	}
	if size > cfg.MaxConns {
		size = cfg.MaxConns
	}
	return size
}
