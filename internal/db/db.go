package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies pending migrations from migrationsDir, or rolls back the
// latest one when down is set. It returns the resulting schema version.
func Migrate(databaseURL, migrationsDir string, down bool, logger *logrus.Logger) (int64, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	goose.SetBaseFS(nil)
	if logger != nil {
		goose.SetLogger(logger.WithField("module", "goose"))
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}

	if down {
		if err := goose.Down(db, migrationsDir); err != nil {
			return 0, fmt.Errorf("goose down: %w", err)
		}
	} else if err := goose.Up(db, migrationsDir); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return version, nil
}
