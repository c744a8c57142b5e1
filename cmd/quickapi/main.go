package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/blobstore/bolt"
	"github.com/LarsVonQualen/quick-api/internal/blobstore/disk"
	"github.com/LarsVonQualen/quick-api/internal/blobstore/mysql"
	"github.com/LarsVonQualen/quick-api/internal/blobstore/postgres"
	"github.com/LarsVonQualen/quick-api/internal/blobstore/s3"
	"github.com/LarsVonQualen/quick-api/internal/config"
	"github.com/LarsVonQualen/quick-api/internal/engine"
	"github.com/LarsVonQualen/quick-api/internal/logger"
	"github.com/LarsVonQualen/quick-api/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "quickapi",
		Usage: "JSON document store over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "bucket storage directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "storage backend: disk, bolt, postgres, mysql, s3",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "database connection string (postgres, mysql)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "debug, info, warn, error",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	// CLI flags override config file values.
	if v := c.String("listen"); v != "" {
		cfg.Server.Listen = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := c.String("backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := c.String("dsn"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	lg := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.SetGlobal(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}
	defer blobs.Close()

	store := engine.New(blobs, lg)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("loading stored buckets: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: server.New(store, lg),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	lg.InfoWith("listening", map[string]interface{}{
		"addr":    cfg.Server.Listen,
		"backend": cfg.Storage.Backend,
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore builds the storage driver named by the config. Driver packages
// are chosen here so the engine stays backend-agnostic.
func openStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	bc := &blobstore.Config{
		Backend:   blobstore.Backend(cfg.Storage.Backend),
		Dir:       cfg.Storage.Dir,
		Path:      cfg.Storage.Path,
		DSN:       cfg.Storage.DSN,
		Endpoint:  cfg.Storage.S3.Endpoint,
		AccessKey: cfg.Storage.S3.AccessKey,
		SecretKey: cfg.Storage.S3.SecretKey,
		UseSSL:    cfg.Storage.S3.UseSSL,
		Region:    cfg.Storage.S3.Region,
		Bucket:    cfg.Storage.S3.Bucket,
	}

	switch bc.Backend {
	case blobstore.BackendDisk, "":
		return disk.New(bc)
	case blobstore.BackendBolt:
		return bolt.New(bc)
	case blobstore.BackendPostgres:
		return postgres.New(ctx, bc)
	case blobstore.BackendMySQL:
		return mysql.New(ctx, bc)
	case blobstore.BackendS3:
		return s3.New(ctx, bc)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
