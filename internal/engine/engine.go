// Package engine implements the bucket store: named buckets of JSON objects
// held in memory, written through to a persistence backend on every
// mutation.
//
// Buckets come into existence lazily — the first operation that references
// a bucket, reads included, creates it empty and persists that empty state.
// Every mutation holds its bucket's lock across the read-modify-persist
// sequence, so mutations on one bucket are serialized and an operation does
// not return until its state change has been written through. A failed
// write is reported to the caller but does not roll back the in-memory
// change; storage lags until the next successful write.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/document"
	"github.com/LarsVonQualen/quick-api/internal/errs"
	"github.com/LarsVonQualen/quick-api/internal/logger"
)

// Store is the bucket store. It is safe for concurrent use; operations on
// different buckets proceed in parallel.
type Store struct {
	mu      sync.RWMutex // guards the buckets map, not bucket contents
	buckets map[string]*bucket

	blobs blobstore.Store
	log   *logger.Logger
}

// bucket holds one bucket's objects. initialized flips to true once the
// bucket's state has been persisted at least once; a failed first persist
// leaves it false so the next operation retries.
type bucket struct {
	mu          sync.RWMutex
	objects     map[string]document.Object
	initialized bool
}

// New creates an empty Store writing through blobs. Call Load to hydrate
// previously stored buckets before serving.
func New(blobs blobstore.Store, log *logger.Logger) *Store {
	if log == nil {
		log = logger.New(nil)
	}
	return &Store{
		buckets: make(map[string]*bucket),
		blobs:   blobs,
		log:     log.Named("engine"),
	}
}

// Ensure creates the bucket empty and persists that state if it has never
// been referenced. Idempotent.
func (s *Store) Ensure(ctx context.Context, name string) error {
	b, err := s.bucketNamed(name)
	if err != nil {
		return err
	}
	return s.ensureInit(ctx, name, b)
}

// Get returns the object stored under key. The bucket is created empty
// when it does not exist yet, in which case the lookup fails with NotFound.
func (s *Store) Get(ctx context.Context, name, key string) (document.Object, error) {
	b, err := s.bucketNamed(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInit(ctx, name, b); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound,
			fmt.Sprintf("no object %q in bucket %q", key, name))
	}
	return obj.Clone(), nil
}

// List returns one page of the bucket's objects, sorted ascending by
// sortBy. An empty sortBy sorts by the identifier field. page below zero
// counts as zero; pageSize of zero or below means the whole bucket. Pages
// past the end are empty, never an error.
func (s *Store) List(ctx context.Context, name, sortBy string, page, pageSize int) ([]document.Object, error) {
	b, err := s.bucketNamed(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInit(ctx, name, b); err != nil {
		return nil, err
	}

	if sortBy == "" {
		sortBy = document.ObjectID
	}

	b.mu.RLock()
	objs := make([]document.Object, 0, len(b.objects))
	for _, o := range b.objects {
		objs = append(objs, o)
	}
	b.mu.RUnlock()

	sort.SliceStable(objs, func(i, j int) bool {
		return less(objs[i], objs[j], sortBy)
	})

	return pageSlice(objs, page, pageSize), nil
}

// Create stores value as a new object and returns the stored form. Any
// identifier the caller put in value is replaced with a generated one.
func (s *Store) Create(ctx context.Context, name string, value document.Object) (document.Object, error) {
	b, err := s.bucketNamed(name)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.initLocked(ctx, name, b); err != nil {
		return nil, err
	}

	obj := value.Clone()
	if obj == nil {
		obj = document.Object{}
	}
	id := document.NewID()
	obj[document.ObjectID] = id
	b.objects[id] = obj

	if err := s.persistLocked(ctx, name, b); err != nil {
		return nil, err
	}
	return obj.Clone(), nil
}

// Update merges patch into the object stored under key, persists, and
// echoes the patch back as received. The identifier field cannot be
// changed: a patch carrying one has that field ignored.
func (s *Store) Update(ctx context.Context, name, key string, patch document.Object) (document.Object, error) {
	b, err := s.bucketNamed(name)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.initLocked(ctx, name, b); err != nil {
		return nil, err
	}

	current, ok := b.objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound,
			fmt.Sprintf("no object %q in bucket %q", key, name))
	}
	b.objects[key] = current.Merge(patch)

	if err := s.persistLocked(ctx, name, b); err != nil {
		return nil, err
	}
	return patch.Clone(), nil
}

// Remove deletes the object stored under key and persists.
func (s *Store) Remove(ctx context.Context, name, key string) (bool, error) {
	b, err := s.bucketNamed(name)
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.initLocked(ctx, name, b); err != nil {
		return false, err
	}

	if _, ok := b.objects[key]; !ok {
		return false, errs.New(errs.ErrKindNotFound,
			fmt.Sprintf("no object %q in bucket %q", key, name))
	}
	delete(b.objects, key)

	if err := s.persistLocked(ctx, name, b); err != nil {
		return false, err
	}
	return true, nil
}

// Ping reports whether the persistence backend is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.blobs.Ping(ctx)
}

// --- internals ---

func (s *Store) bucketNamed(name string) (*bucket, error) {
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "bucket name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		b = &bucket{objects: make(map[string]document.Object)}
		s.buckets[name] = b
	}
	return b, nil
}

// ensureInit persists the bucket's empty state the first time the bucket
// is referenced. Reads take the fast path once initialization succeeded.
func (s *Store) ensureInit(ctx context.Context, name string, b *bucket) error {
	b.mu.RLock()
	done := b.initialized
	b.mu.RUnlock()
	if done {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return s.initLocked(ctx, name, b)
}

// initLocked is ensureInit for callers already holding b.mu write-locked.
func (s *Store) initLocked(ctx context.Context, name string, b *bucket) error {
	if b.initialized {
		return nil
	}
	if err := s.persistLocked(ctx, name, b); err != nil {
		return err
	}
	b.initialized = true
	s.log.With().Str("bucket", name).Logger().Debug("bucket created")
	return nil
}

// persistLocked writes the bucket's current state through the persistence
// backend. Must be called with b.mu write-held; the caller's operation is
// not complete until this returns.
func (s *Store) persistLocked(ctx context.Context, name string, b *bucket) error {
	data, err := json.MarshalIndent(b.objects, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrKindIOFailure,
			fmt.Sprintf("failed to encode bucket %q", name), err)
	}
	if err := s.blobs.Write(ctx, name, data); err != nil {
		s.log.ErrorWith("bucket write failed", err, map[string]interface{}{"bucket": name})
		return err
	}
	return nil
}

// less orders objects by the sort field, objects missing the field first.
// Ties fall back to the identifier so that equal field values keep the
// same relative order across calls — page requests arrive as separate
// calls and their concatenation must reconstruct one consistent sequence.
func less(a, b document.Object, field string) bool {
	av, aok := a[field]
	bv, bok := b[field]
	switch {
	case !aok && !bok:
		// both missing, fall through to the id tiebreak
	case !aok:
		return true
	case !bok:
		return false
	default:
		if c := document.Compare(av, bv); c != 0 {
			return c < 0
		}
	}
	return a.ID() < b.ID()
}

// pageSlice applies the pagination window and returns caller-owned copies.
func pageSlice(objs []document.Object, page, pageSize int) []document.Object {
	n := len(objs)
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = n
	}

	// Pages past the last are empty. Compare against the quotient: the
	// product page*pageSize can wrap around for huge page values.
	if n == 0 || int64(page) > int64(n-1)/int64(pageSize) {
		return []document.Object{}
	}
	start := int64(page) * int64(pageSize)
	end := start + int64(pageSize)
	if end > int64(n) {
		end = int64(n)
	}

	out := make([]document.Object, 0, end-start)
	for _, o := range objs[start:end] {
		out = append(out, o.Clone())
	}
	return out
}
