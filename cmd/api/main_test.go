package main

import (
	"context"
	"errors"
	"testing"

	"dispatchops/api/internal/config"
	"dispatchops/api/internal/source"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubDB(t *testing.T, migrateErr error) *[]string {
	t.Helper()
	var calls []string
	origMigrate, origConnect := migrateDB, connectDB
	t.Cleanup(func() { migrateDB, connectDB = origMigrate, origConnect })

	migrateDB = func(url, dir string, down bool, _ *logrus.Logger) (int64, error) {
		assert.False(t, down)
		calls = append(calls, "migrate "+dir)
		return 1, migrateErr
	}
	connectDB = func(context.Context, string) (*pgxpool.Pool, error) {
		calls = append(calls, "connect")
		return nil, errors.New("no database here")
	}
	return &calls
}

func TestOpenSourcePostgresMigratesFirst(t *testing.T) {
	calls := stubDB(t, nil)
	log, _ := test.NewNullLogger()
	cfg := config.Config{OrderSource: config.SourcePostgres, MigrationsDir: "db/migrations"}

	_, _, _, err := openSource(context.Background(), cfg, log)
	require.Error(t, err)
	assert.Equal(t, []string{"migrate db/migrations", "connect"}, *calls)
}

func TestOpenSourcePostgresStopsOnMigrationError(t *testing.T) {
	calls := stubDB(t, errors.New("goose up: boom"))
	log, _ := test.NewNullLogger()
	cfg := config.Config{OrderSource: config.SourcePostgres, MigrationsDir: "db/migrations"}

	_, _, _, err := openSource(context.Background(), cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db migrate")
	assert.Equal(t, []string{"migrate db/migrations"}, *calls)
}

func TestOpenSourceFile(t *testing.T) {
	calls := stubDB(t, nil)
	log, _ := test.NewNullLogger()

	feed, sink, closeSource, err := openSource(context.Background(),
		config.Config{OrderSource: config.SourceFile, OrdersFile: "orders.json"}, log)
	require.NoError(t, err)
	defer closeSource()
	assert.Equal(t, source.File{Path: "orders.json"}, feed)
	assert.Equal(t, source.LocalSink{}, sink)
	assert.Empty(t, *calls)
}
