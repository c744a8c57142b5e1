// Package blobstore defines the unified interface for bucket persistence
// backends.
//
// A backend stores one opaque blob per bucket: the serialized JSON form of
// every object in that bucket. Writes always replace the whole blob, so a
// backend never needs to understand bucket contents. All providers (disk,
// bbolt, Postgres, MySQL, MinIO) implement the Store interface; the engine
// depends only on this package, and provider packages are imported solely
// where the backend is chosen.
//
// Usage:
//
//	cfg := blobstore.DefaultConfig("./data")
//	store, err := disk.New(cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	entries, err := store.ReadAll(ctx)
package blobstore

import "context"

// Store is the single interface all persistence backends must implement.
type Store interface {
	// Ping verifies the backend is reachable and usable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, file handles, etc.).
	Close() error

	// ReadAll returns the stored blob of every bucket. It is called once at
	// startup to hydrate the in-memory state.
	ReadAll(ctx context.Context) ([]Entry, error)

	// Write replaces the stored blob for bucket with contents. The write is
	// complete and durable when Write returns nil.
	Write(ctx context.Context, bucket string, contents []byte) error
}

// Entry is one stored bucket as returned by ReadAll.
type Entry struct {
	// Bucket is the bucket name under which the blob was stored. Backends
	// that sanitize names for storage return the sanitized form.
	Bucket string

	// Contents is the raw serialized blob.
	Contents []byte
}
