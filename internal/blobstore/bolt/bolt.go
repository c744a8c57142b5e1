// Package bolt provides a bbolt (embedded B+ tree) implementation of
// blobstore.Store. All bucket blobs live in a single database file under
// one fixed bbolt bucket, keyed by bucket name. Names are stored exactly
// as given — bbolt keys have no character restrictions.
package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	bbolt "go.etcd.io/bbolt"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/errs"
)

// rootBucket is the single bbolt bucket holding every blob.
var rootBucket = []byte("buckets")

// Driver is a bbolt implementation of blobstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *bbolt.DB
}

var _ blobstore.Store = (*Driver)(nil)

// New creates or opens the database file at cfg.Path and ensures the root
// bucket exists.
func New(cfg *blobstore.Config) (*Driver, error) {
	if cfg.Path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "bolt backend requires a database path")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to create database directory", err)
		}
	}

	db, err := bbolt.Open(cfg.Path, 0600, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to open bolt database", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to prepare bolt database", err)
	}

	return &Driver{db: db}, nil
}

// --- blobstore.Store implementation ---

// Ping verifies the root bucket is readable.
func (d *Driver) Ping(ctx context.Context) error {
	err := d.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(rootBucket) == nil {
			return fmt.Errorf("root bucket missing")
		}
		return nil
	})
	if err != nil {
		return errs.Wrap(errs.ErrKindIOFailure, "bolt ping failed", err)
	}
	return nil
}

// Close closes the underlying database file.
func (d *Driver) Close() error {
	return d.db.Close()
}

// ReadAll returns every stored blob. Values are copied out of the
// transaction — bbolt memory is only valid while the transaction is open.
func (d *Driver) ReadAll(ctx context.Context) ([]blobstore.Entry, error) {
	var entries []blobstore.Entry
	err := d.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rootBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			contents := make([]byte, len(v))
			copy(contents, v)
			entries = append(entries, blobstore.Entry{
				Bucket:   string(k),
				Contents: contents,
			})
			return nil
		})
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to read stored buckets", err)
	}
	return entries, nil
}

// Write replaces the blob stored under bucket.
func (d *Driver) Write(ctx context.Context, bucket string, contents []byte) error {
	err := d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rootBucket)
		if b == nil {
			return fmt.Errorf("root bucket missing")
		}
		return b.Put([]byte(bucket), contents)
	})
	if err != nil {
		return errs.Wrap(errs.ErrKindIOFailure,
			fmt.Sprintf("failed to write bucket %q", bucket), err)
	}
	return nil
}
