// Package mysql provides a MySQL implementation of blobstore.Store backed
// by database/sql. Each bucket is one row in the buckets table: name
// (primary key) and contents (the serialized blob, stored as JSON).
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/errs"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver
)

const (
	createTable = `
		CREATE TABLE IF NOT EXISTS buckets (
			name     VARCHAR(255) PRIMARY KEY,
			contents JSON NOT NULL
		)`

	upsertBucket = `
		INSERT INTO buckets (name, contents)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE contents = VALUES(contents)`

	selectAllBuckets = `SELECT name, contents FROM buckets ORDER BY name`
)

const (
	defaultMaxConns       = 10
	defaultMinConns       = 2
	defaultConnectTimeout = 5 * time.Second
)

// Driver is a MySQL implementation of blobstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

var _ blobstore.Store = (*Driver)(nil)

// New opens a MySQL connection pool using the provided Config, verifies the
// connection, and ensures the buckets table exists.
func New(ctx context.Context, cfg *blobstore.Config) (*Driver, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}

	db.SetMaxOpenConns(int(withDefault(cfg.MaxConns, defaultMaxConns)))
	db.SetMaxIdleConns(int(withDefault(cfg.MinConns, defaultMinConns)))

	d := &Driver{db: db}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, mapError(err, "failed to create buckets table")
	}

	return d, nil
}

// --- blobstore.Store implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

// ReadAll returns every bucket row.
func (d *Driver) ReadAll(ctx context.Context) ([]blobstore.Entry, error) {
	rows, err := d.db.QueryContext(ctx, selectAllBuckets)
	if err != nil {
		return nil, mapError(err, "failed to read stored buckets")
	}
	defer rows.Close()

	var entries []blobstore.Entry
	for rows.Next() {
		var e blobstore.Entry
		if err := rows.Scan(&e.Bucket, &e.Contents); err != nil {
			return nil, mapError(err, "failed to scan bucket row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating bucket rows")
	}
	return entries, nil
}

// Write upserts the bucket's row. contents must be valid JSON — the JSON
// column rejects anything else, which surfaces as MalformedData.
func (d *Driver) Write(ctx context.Context, bucket string, contents []byte) error {
	if _, err := d.db.ExecContext(ctx, upsertBucket, bucket, string(contents)); err != nil {
		return mapError(err, fmt.Sprintf("failed to write bucket %q", bucket))
	}
	return nil
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}
