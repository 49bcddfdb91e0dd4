package repository

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

// Config tunes the postgres pool behind the result archive.
type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open builds a pgx pool for the archive and pings it before returning.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "parse archive dsn", err)
	}
	log := logger.With("host", pc.ConnConfig.Host, "database", pc.ConnConfig.Database)

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= pc.MaxConns {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "contracts-tracker"
	if cfg.StatementTimeout > 0 {
		// postgres reads a bare number as milliseconds
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "connect archive database", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, common.NewAppError(common.CodeStorage, "ping archive database", err)
	}

	log.Info("archive database connected", "max_conns", pc.MaxConns)
	return pool, nil
}

// HealthCheck pings the pool within timeout.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := pool.Ping(ctx); err != nil {
		return common.NewAppError(common.CodeStorage, "archive database health check", err)
	}
	logger.Debug("archive database healthy", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
