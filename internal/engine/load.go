package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/LarsVonQualen/quick-api/internal/document"
	"github.com/LarsVonQualen/quick-api/internal/errs"
)

// Load hydrates the store from the persistence backend. Call it once,
// before serving. Blob decoding fans out across a worker pool; a blob that
// does not decode as a bucket aborts startup with MalformedData — stored
// data is never silently skipped.
func (s *Store) Load(ctx context.Context) error {
	entries, err := s.blobs.ReadAll(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.log.Info("no stored buckets found")
		return nil
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	if poolSize > len(entries) {
		poolSize = len(entries)
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return errs.Wrap(errs.ErrKindIOFailure, "failed to create hydration pool", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		loaded   = make(map[string]*bucket, len(entries))
	)

	for _, entry := range entries {
		entry := entry
		wg.Add(1)
		task := func() {
			defer wg.Done()
			objects, decodeErr := decodeBucket(entry.Contents)

			mu.Lock()
			defer mu.Unlock()
			if decodeErr != nil {
				if firstErr == nil {
					firstErr = errs.Wrap(errs.ErrKindMalformedData,
						fmt.Sprintf("stored bucket %q is not readable", entry.Bucket), decodeErr)
				}
				return
			}
			loaded[entry.Bucket] = &bucket{objects: objects, initialized: true}
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	s.mu.Lock()
	for name, b := range loaded {
		s.buckets[name] = b
	}
	count := len(s.buckets)
	s.mu.Unlock()

	s.log.InfoWith("hydrated buckets", map[string]interface{}{"buckets": count})
	return nil
}

// decodeBucket parses a stored blob into the bucket's object map. A blob
// holding JSON null counts as an empty bucket; a null value under a key
// does not — every stored entry must be an object.
func decodeBucket(contents []byte) (map[string]document.Object, error) {
	var objects map[string]document.Object
	if err := json.Unmarshal(contents, &objects); err != nil {
		return nil, err
	}
	for key, obj := range objects {
		if obj == nil {
			return nil, fmt.Errorf("object %q is null", key)
		}
	}
	if objects == nil {
		objects = make(map[string]document.Object)
	}
	return objects, nil
}
