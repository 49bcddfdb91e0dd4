package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

// OpenArchive builds the archive selected by cfg.Driver. It returns nil for
// common.ArchiveNone.
func OpenArchive(ctx context.Context, cfg common.ArchiveConfig, logger *slog.Logger) (ResultArchive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case common.ArchiveNone, "":
		return nil, nil
	case common.ArchiveSQLite:
		db, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("result archive ready", "driver", cfg.Driver)
		return NewSQLiteArchive(db), nil
	case common.ArchivePostgres:
		pool, err := Open(ctx, Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		a, err := NewPostgresArchive(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("result archive ready", "driver", cfg.Driver)
		return a, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}
