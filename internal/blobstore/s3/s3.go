// Package s3 provides a MinIO / S3 implementation of blobstore.Store.
// Every bucket blob is one object ("<name>.json") inside a single
// configured object-store container. Names are sanitized the same way the
// disk backend sanitizes filenames.
//
// Usage:
//
//	cfg := blobstore.DefaultConfig("")
//	cfg.Backend = blobstore.BackendS3
//	cfg.Endpoint = "localhost:9000"
//	cfg.AccessKey = "minioadmin"
//	cfg.SecretKey = "minioadmin"
//	cfg.Bucket = "quickapi"
//	store, err := s3.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/errs"
)

const objectExt = ".json"

// Driver is a MinIO implementation of blobstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client    *miniogo.Client
	container string
}

var _ blobstore.Store = (*Driver)(nil)

// New connects to the object store using the provided Config and ensures
// the container exists, creating it when missing.
func New(ctx context.Context, cfg *blobstore.Config) (*Driver, error) {
	if cfg.Bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "s3 backend requires a container bucket name")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIOFailure, "failed to create object store client", err)
	}

	d := &Driver{client: client, container: cfg.Bucket}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, mapError(err, "failed to check container")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, mapError(err, "failed to create container")
		}
	}

	return d, nil
}

// --- blobstore.Store implementation ---

// Ping verifies the object store is reachable and the container exists.
func (d *Driver) Ping(ctx context.Context) error {
	exists, err := d.client.BucketExists(ctx, d.container)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !exists {
		return errs.New(errs.ErrKindIOFailure,
			fmt.Sprintf("container %q no longer exists", d.container))
	}
	return nil
}

// Close is a no-op — the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// ReadAll downloads every bucket object in the container.
func (d *Driver) ReadAll(ctx context.Context) ([]blobstore.Entry, error) {
	var entries []blobstore.Entry

	for obj := range d.client.ListObjects(ctx, d.container, miniogo.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list bucket objects")
		}
		if !strings.HasSuffix(obj.Key, objectExt) {
			continue
		}

		contents, err := d.download(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, blobstore.Entry{
			Bucket:   strings.TrimSuffix(obj.Key, objectExt),
			Contents: contents,
		})
	}
	return entries, nil
}

// Write replaces the bucket's object.
func (d *Driver) Write(ctx context.Context, bucket string, contents []byte) error {
	key := blobstore.SanitizeName(bucket) + objectExt
	_, err := d.client.PutObject(ctx, d.container, key,
		bytes.NewReader(contents), int64(len(contents)),
		miniogo.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return mapError(err, fmt.Sprintf("failed to write bucket %q", bucket))
	}
	return nil
}

func (d *Driver) download(ctx context.Context, key string) ([]byte, error) {
	obj, err := d.client.GetObject(ctx, d.container, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to get object %q", key))
	}
	defer obj.Close()

	contents, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to read object %q", key))
	}
	return contents, nil
}
