// Package disk provides the file-backed implementation of blobstore.Store:
// one JSON file per bucket under a root directory.
//
// Bucket names are sanitized for the filesystem, so the file for bucket
// "my fruit" is "my_fruit.json". Writes go to a temporary file first and
// are renamed into place, so a crash mid-write never leaves a truncated
// bucket file behind.
package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/errs"
)

const fileExt = ".json"

// Driver is a local-filesystem implementation of blobstore.Store.
// It is safe for concurrent use as long as callers never write the same
// bucket concurrently, which the engine's per-bucket locking guarantees.
type Driver struct {
	root string
}

var _ blobstore.Store = (*Driver)(nil)

// New creates the root directory if needed and returns a Driver.
func New(cfg *blobstore.Config) (*Driver, error) {
	if cfg.Dir == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "disk backend requires a root directory")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to create storage root", err)
	}
	return &Driver{root: cfg.Dir}, nil
}

// --- blobstore.Store implementation ---

// Ping verifies the root directory still exists and is a directory.
func (d *Driver) Ping(ctx context.Context) error {
	info, err := os.Stat(d.root)
	if err != nil {
		return errs.Wrap(errs.ErrKindIOFailure, "storage root not accessible", err)
	}
	if !info.IsDir() {
		return errs.New(errs.ErrKindIOFailure, fmt.Sprintf("storage root %q is not a directory", d.root))
	}
	return nil
}

// Close is a no-op — the driver holds no open handles between calls.
func (d *Driver) Close() error {
	return nil
}

// ReadAll reads every bucket file under the root. The bucket name is the
// filename without its extension.
func (d *Driver) ReadAll(ctx context.Context) ([]blobstore.Entry, error) {
	dirEntries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to read storage root", err)
	}

	var entries []blobstore.Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.root, de.Name()))
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindIOFailure,
				fmt.Sprintf("failed to read bucket file %q", de.Name()), err)
		}
		entries = append(entries, blobstore.Entry{
			Bucket:   strings.TrimSuffix(de.Name(), fileExt),
			Contents: data,
		})
	}
	return entries, nil
}

// Write replaces the bucket's file. The contents land in a temporary file
// that is renamed over the final path, so readers of the file never observe
// a partial write.
func (d *Driver) Write(ctx context.Context, bucket string, contents []byte) error {
	final := d.Path(bucket)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, contents, 0644); err != nil {
		return errs.Wrap(errs.ErrKindIOFailure,
			fmt.Sprintf("failed to write bucket %q", bucket), err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.ErrKindIOFailure,
			fmt.Sprintf("failed to replace bucket file for %q", bucket), err)
	}
	return nil
}

// Path returns the file path a bucket is stored under.
func (d *Driver) Path(bucket string) string {
	return filepath.Join(d.root, blobstore.SanitizeName(bucket)+fileExt)
}
