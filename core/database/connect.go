package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
)

// Connect opens the database, configures the pool, and verifies connectivity.
// It retries until the server answers or ctx expires.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	start := time.Now()
	attrs := []slog.Attr{
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err = sqlx.ConnectContext(pingCtx, "postgres", cfg.DSN())
		cancel()
		if err == nil {
			break
		}
		logger.Warn(ctx, logger.CompDB, "db.connect",
			append(attrs, slog.String("status", "retry"), slog.Int("attempts", attempt), slog.String("err", err.Error()))...)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect: %w", err)
		case <-time.After(2 * time.Second):
		}
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	logger.Info(ctx, logger.CompDB, "db.connect",
		append(attrs,
			slog.String("status", "ok"),
			slog.Int("pool_open", cfg.MaxConnections),
			slog.Duration("duration", logger.Took(start)),
		)...)
	return db, nil
}
