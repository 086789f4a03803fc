package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatchops/api/internal/config"
	"dispatchops/api/internal/db"
	"dispatchops/api/internal/dispatch"
	"dispatchops/api/internal/geo"
	"dispatchops/api/internal/httpapi"
	"dispatchops/api/internal/logger"
	"dispatchops/api/internal/source"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "dispatch",
		Usage:  "pickup and delivery dispatch board",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back the latest migration"},
				},
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "load demo orders into the orders table",
				Action: seed,
			},
			{
				Name:  "classify",
				Usage: "print the board for an orders file (.json, .csv, .xlsx)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: classify,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Replaced in tests.
var (
	migrateDB = db.Migrate
	connectDB = db.Connect
)

func setup() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	return cfg, log, nil
}

func newStore(cfg config.Config, log *logrus.Logger, feed dispatch.Feed, sink dispatch.StatusSink) *dispatch.Store {
	return dispatch.NewStore(dispatch.StoreConfig{
		Classifier: dispatch.NewClassifier(cfg.LocalityCode),
		Origin:     geo.Point{Lat: cfg.OriginLat, Lng: cfg.OriginLng},
		Feed:       feed,
		Sink:       sink,
		Logger:     log,
	})
}

// openSource wires the configured order source. The returned close func
// releases the database pool when one was opened.
func openSource(ctx context.Context, cfg config.Config, log *logrus.Logger) (dispatch.Feed, dispatch.StatusSink, func(), error) {
	switch cfg.OrderSource {
	case config.SourceAPI:
		api := source.NewAPI(source.APIConfig{
			BaseURL:  cfg.OrdersAPIURL,
			Key:      cfg.OrdersAPIKey,
			Timeout:  cfg.FetchTimeout,
			Attempts: cfg.FetchTries,
			Logger:   log,
		})
		return api, api, func() {}, nil
	case config.SourceFile:
		return source.File{Path: cfg.OrdersFile}, source.LocalSink{}, func() {}, nil
	case config.SourcePostgres:
		if _, err := migrateDB(cfg.DatabaseURL, cfg.MigrationsDir, false, log); err != nil {
			return nil, nil, nil, fmt.Errorf("db migrate: %w", err)
		}
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connect: %w", err)
		}
		pg := source.Postgres{Pool: pool}
		return pg, pg, pool.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown order source %q", cfg.OrderSource)
}

func serve(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	feed, sink, closeSource, err := openSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	store := newStore(cfg, log, feed, sink)
	if err := store.Reload(ctx); err != nil {
		// The board starts empty; POST /api/dispatch/reload retries.
		logger.LogError(log, "main", "serve", err, logrus.Fields{"source": cfg.OrderSource})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter(httpapi.Deps{Store: store, Config: cfg, Logger: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "source": cfg.OrderSource}).Info("dispatch API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	version, err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, c.Bool("down"), log)
	if err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	log.WithField("version", version).Info("migrations applied")
	return nil
}

func seed(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if _, err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, false, log); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	pool, err := db.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	n, err := db.Seed(c.Context, pool)
	if err != nil {
		return fmt.Errorf("db seed: %w", err)
	}
	log.WithField("inserted", n).Info("demo orders seeded")
	return nil
}

func classify(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	// stdout carries the board.
	log.SetOutput(os.Stderr)

	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	orders, err := source.ReadFile(path, f)
	if err != nil {
		return err
	}
	store := newStore(cfg, log, nil, source.LocalSink{})
	store.Replace(orders)

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(store.Board())
}
