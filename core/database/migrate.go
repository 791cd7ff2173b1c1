package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
)

// RunMigrations applies all up migrations found in dir of fsys.
func RunMigrations(ctx context.Context, cfg Config, fsys fs.FS, dir string) error {
	return RunMigrationsURL(ctx, cfg.URL(), fsys, dir)
}

// RunMigrationsURL is RunMigrations for a ready postgres:// URL.
func RunMigrationsURL(ctx context.Context, dbURL string, fsys fs.FS, dir string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("open migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, logger.CompMigrate, "db.migrate.close", slog.Any("err", errors.Join(srcErr, dbErr)))
		}
	}()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, logger.CompMigrate, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.Info(ctx, logger.CompMigrate, "db.migrate",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
