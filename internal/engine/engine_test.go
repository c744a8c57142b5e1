package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarsVonQualen/quick-api/internal/blobstore"
	"github.com/LarsVonQualen/quick-api/internal/blobstore/disk"
	"github.com/LarsVonQualen/quick-api/internal/document"
	"github.com/LarsVonQualen/quick-api/internal/errs"
	"github.com/LarsVonQualen/quick-api/internal/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	drv, err := disk.New(blobstore.DefaultConfig(dir))
	require.NoError(t, err)
	return New(drv, quietLogger()), dir
}

func TestGetUnknownBucketCreatesIt(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "ghosts", "nope")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	// The read brought the bucket into existence, empty and persisted.
	data, err := os.ReadFile(filepath.Join(dir, "ghosts.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	objs, err := s.List(ctx, "ghosts", "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestEnsureIdempotent(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ensure(ctx, "fruit"))
	require.NoError(t, s.Ensure(ctx, "fruit"))

	_, err := os.Stat(filepath.Join(dir, "fruit.json"))
	assert.NoError(t, err)
}

func TestEmptyBucketNameRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.Ensure(ctx, "")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCreateAssignsID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "fruit", document.Object{
		"name":            "apple",
		document.ObjectID: "forged",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID())
	assert.NotEqual(t, "forged", created.ID())
	assert.Equal(t, "apple", created["name"])
}

func TestCreateDistinctIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ids := make(map[string]bool)
	for i := 0; i < 25; i++ {
		created, err := s.Create(ctx, "fruit", document.Object{"n": float64(i)})
		require.NoError(t, err)
		assert.False(t, ids[created.ID()], "duplicate id %q", created.ID())
		ids[created.ID()] = true
	}
}

func TestCreateThenGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "fruit", document.Object{"name": "apple", "count": 3.0})
	require.NoError(t, err)

	got, err := s.Get(ctx, "fruit", created.ID())
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "fruit", document.Object{"name": "apple"})
	require.NoError(t, err)

	got, err := s.Get(ctx, "fruit", created.ID())
	require.NoError(t, err)
	got["name"] = "tampered"

	again, err := s.Get(ctx, "fruit", created.ID())
	require.NoError(t, err)
	assert.Equal(t, "apple", again["name"])
}

func TestUpdateMergesAndEchoes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "fruit", document.Object{"name": "apple", "color": "red"})
	require.NoError(t, err)

	patch := document.Object{"name": "pear"}
	echoed, err := s.Update(ctx, "fruit", created.ID(), patch)
	require.NoError(t, err)

	// The update answer is the patch as received, not the merged object.
	assert.Equal(t, patch, echoed)

	got, err := s.Get(ctx, "fruit", created.ID())
	require.NoError(t, err)
	assert.Equal(t, "pear", got["name"])
	assert.Equal(t, "red", got["color"])
	assert.Equal(t, created.ID(), got.ID())
}

func TestUpdateCannotChangeID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "fruit", document.Object{"name": "apple"})
	require.NoError(t, err)

	patch := document.Object{document.ObjectID: "other", "name": "pear"}
	echoed, err := s.Update(ctx, "fruit", created.ID(), patch)
	require.NoError(t, err)

	// The echo carries the patch verbatim, identifier included…
	assert.Equal(t, "other", echoed[document.ObjectID])

	// …but the stored object keeps its identifier.
	got, err := s.Get(ctx, "fruit", created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), got.ID())
	assert.Equal(t, "pear", got["name"])

	_, err = s.Get(ctx, "fruit", "other")
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateMissingObject(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "fruit", "missing", document.Object{"name": "x"})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "fruit", document.Object{"name": "apple"})
	require.NoError(t, err)

	ok, err := s.Remove(ctx, "fruit", created.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Get(ctx, "fruit", created.ID())
	assert.True(t, errs.IsNotFound(err))

	_, err = s.Remove(ctx, "fruit", created.ID())
	assert.True(t, errs.IsNotFound(err))
}

func TestListDefaultSortsByID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		created, err := s.Create(ctx, "fruit", document.Object{"n": float64(i)})
		require.NoError(t, err)
		ids = append(ids, created.ID())
	}

	objs, err := s.List(ctx, "fruit", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, objs, 5)

	for i := 1; i < len(objs); i++ {
		assert.Less(t, objs[i-1].ID(), objs[i].ID())
	}

	listed := make(map[string]bool)
	for _, o := range objs {
		listed[o.ID()] = true
	}
	for _, id := range ids {
		assert.True(t, listed[id])
	}
}

func TestListSortsByField(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"banana", "apple", "cherry"} {
		_, err := s.Create(ctx, "fruit", document.Object{"name": name})
		require.NoError(t, err)
	}

	objs, err := s.List(ctx, "fruit", "name", 0, 0)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "apple", objs[0]["name"])
	assert.Equal(t, "banana", objs[1]["name"])
	assert.Equal(t, "cherry", objs[2]["name"])
}

func TestListMissingSortFieldSortsFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "fruit", document.Object{"name": "apple", "rank": 2.0})
	require.NoError(t, err)
	_, err = s.Create(ctx, "fruit", document.Object{"name": "pear"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "fruit", document.Object{"name": "fig", "rank": 1.0})
	require.NoError(t, err)

	objs, err := s.List(ctx, "fruit", "rank", 0, 0)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "pear", objs[0]["name"])
	assert.Equal(t, "fig", objs[1]["name"])
	assert.Equal(t, "apple", objs[2]["name"])
}

func TestListMixedTypesDoesNotPanic(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	values := []any{nil, true, 2.0, "x", []any{1.0}, map[string]any{"k": "v"}}
	for _, v := range values {
		_, err := s.Create(ctx, "mixed", document.Object{"v": v})
		require.NoError(t, err)
	}

	objs, err := s.List(ctx, "mixed", "v", 0, 0)
	require.NoError(t, err)
	require.Len(t, objs, len(values))

	// null < bool < number < string < array < object
	assert.Nil(t, objs[0]["v"])
	assert.Equal(t, true, objs[1]["v"])
	assert.Equal(t, 2.0, objs[2]["v"])
	assert.Equal(t, "x", objs[3]["v"])
}

func TestListPagination(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Create(ctx, "fruit", document.Object{"n": float64(i)})
		require.NoError(t, err)
	}

	full, err := s.List(ctx, "fruit", "n", 0, 0)
	require.NoError(t, err)
	require.Len(t, full, 10)

	// Concatenating the pages reconstructs the full sorted sequence.
	var pages []document.Object
	for page := 0; ; page++ {
		objs, err := s.List(ctx, "fruit", "n", page, 3)
		require.NoError(t, err)
		if len(objs) == 0 {
			break
		}
		pages = append(pages, objs...)
	}
	assert.Equal(t, full, pages)

	// Page sizes along the way: 3, 3, 3, 1.
	last, err := s.List(ctx, "fruit", "n", 3, 3)
	require.NoError(t, err)
	assert.Len(t, last, 1)
}

func TestListPageOutOfRange(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "fruit", document.Object{"name": "apple"})
	require.NoError(t, err)

	objs, err := s.List(ctx, "fruit", "", 7, 10)
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)

	// Negative page counts as the first page.
	objs, err = s.List(ctx, "fruit", "", -2, 10)
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestListHugePageIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, "fruit", document.Object{"n": float64(i)})
		require.NoError(t, err)
	}

	// 1<<62 * 4 wraps to zero in 64-bit arithmetic; the window must not
	// land back on the first page.
	objs, err := s.List(ctx, "fruit", "", 1<<62, 4)
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)

	objs, err = s.List(ctx, "fruit", "", math.MaxInt, 3)
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestListEqualSortValuesKeepOrderAcrossCalls(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := s.Create(ctx, "fruit", document.Object{"rank": 1.0, "n": float64(i)})
		require.NoError(t, err)
	}

	full, err := s.List(ctx, "fruit", "rank", 0, 0)
	require.NoError(t, err)

	var pages []document.Object
	for page := 0; page < 6; page++ {
		objs, err := s.List(ctx, "fruit", "rank", page, 1)
		require.NoError(t, err)
		require.Len(t, objs, 1)
		pages = append(pages, objs...)
	}
	assert.Equal(t, full, pages)
}

func TestConcurrentCreatesOneBucket(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errc := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, "burst", document.Object{"n": float64(i)})
			errc <- err
		}(i)
	}
	wg.Wait()
	close(errc)

	for err := range errc {
		require.NoError(t, err)
	}

	objs, err := s.List(ctx, "burst", "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, objs, n)

	// The persisted file holds every object and parses cleanly.
	data, err := os.ReadFile(filepath.Join(dir, "burst.json"))
	require.NoError(t, err)
	var stored map[string]document.Object
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored, n)
}

func TestConcurrentOpsAcrossBuckets(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("bucket-%d", i)
			created, err := s.Create(ctx, name, document.Object{"n": float64(i)})
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := s.Get(ctx, name, created.ID()); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
}

// flakyStore injects write failures around a real backend.
type flakyStore struct {
	blobstore.Store
	mu   sync.Mutex
	fail bool
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyStore) Write(ctx context.Context, bucket string, contents []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errs.New(errs.ErrKindIOFailure, "injected write failure")
	}
	return f.Store.Write(ctx, bucket, contents)
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	drv, err := disk.New(blobstore.DefaultConfig(dir))
	require.NoError(t, err)
	flaky := &flakyStore{Store: drv}
	s := New(flaky, quietLogger())
	ctx := context.Background()

	first, err := s.Create(ctx, "fruit", document.Object{"name": "apple"})
	require.NoError(t, err)

	flaky.setFail(true)
	_, err = s.Create(ctx, "fruit", document.Object{"name": "pear"})
	require.Error(t, err)
	assert.True(t, errs.IsIOFailure(err))

	// The failed create still landed in memory; storage lags behind.
	objs, err := s.List(ctx, "fruit", "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	// The next successful write carries the full state back out.
	flaky.setFail(false)
	_, err = s.Update(ctx, "fruit", first.ID(), document.Object{"ripe": true})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "fruit.json"))
	require.NoError(t, err)
	var stored map[string]document.Object
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored, 2)
}
