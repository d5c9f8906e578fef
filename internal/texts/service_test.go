package texts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmark/text-analyzer/internal/analyzer"
	"github.com/quillmark/text-analyzer/internal/cache"
	"github.com/quillmark/text-analyzer/internal/db"
	"github.com/quillmark/text-analyzer/internal/errs"
	"github.com/quillmark/text-analyzer/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.TextStore
	backend cache.Backend
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithBackend(t, cache.NewMemoryBackend())
}

func setupWithBackend(t *testing.T, backend cache.Backend) *fixture {
	t.Helper()

	sqlDB, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	st := store.New(sqlDB)
	return &fixture{
		svc:     NewService(st, cache.New(backend, time.Minute)),
		store:   st,
		backend: backend,
	}
}

func TestCreate_ComputesAnalysis(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "First sentence. Second sentence!\n\nNew paragraph")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "user-1", rec.OwnerID)
	require.NotNil(t, rec.Analysis)
	assert.Equal(t, analyzer.Analyze(rec.Content), *rec.Analysis)
}

func TestCreate_EmptyContentRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := f.svc.Create(ctx, "user-1", content)
		require.Error(t, err, "content %q", content)
		assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
	}
}

func TestRead_PopulatesCacheOnMiss(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "cache me")
	require.NoError(t, err)

	// Creation does not warm the cache; the first read does.
	_, err = f.backend.Get(ctx, CacheKey(rec.ID))
	require.ErrorIs(t, err, cache.ErrMiss)

	got, err := f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	cached, err := f.backend.Get(ctx, CacheKey(rec.ID))
	require.NoError(t, err)
	var cachedRec store.Record
	require.NoError(t, json.Unmarshal([]byte(cached), &cachedRec))
	assert.Equal(t, got.Content, cachedRec.Content)
}

func TestRead_ServesCacheHitWithoutRevalidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "original")
	require.NoError(t, err)

	_, err = f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)

	// Mutate the store behind the service's back. A cached read must keep
	// serving the cached copy until something invalidates it.
	_, err = f.store.UpdateContentIfOwner(ctx, rec.ID, "user-1", "changed underneath")
	require.NoError(t, err)

	got, err := f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
}

func TestRead_Missing(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Read(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestRead_CorruptCacheEntryFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "real content")
	require.NoError(t, err)
	require.NoError(t, f.backend.Set(ctx, CacheKey(rec.ID), "{not json", time.Minute))

	got, err := f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "real content", got.Content)

	// The corrupt entry is replaced by the store copy.
	cached, err := f.backend.Get(ctx, CacheKey(rec.ID))
	require.NoError(t, err)
	var cachedRec store.Record
	require.NoError(t, json.Unmarshal([]byte(cached), &cachedRec))
	assert.Equal(t, "real content", cachedRec.Content)
}

func TestUpdate_InvalidatesCacheAndReanalyzes(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "one two")
	require.NoError(t, err)

	_, err = f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, rec.ID, "user-1", "three four five six")
	require.NoError(t, err)
	assert.Equal(t, "three four five six", updated.Content)
	require.NotNil(t, updated.Analysis)
	assert.Equal(t, 4, updated.Analysis.Words)

	// The stale cached copy is gone; the next read sees the new content.
	_, err = f.backend.Get(ctx, CacheKey(rec.ID))
	require.ErrorIs(t, err, cache.ErrMiss)

	got, err := f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "three four five six", got.Content)
}

func TestUpdate_NonOwnerLeavesRecordAndCacheIntact(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "mine")
	require.NoError(t, err)
	_, err = f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, rec.ID, "user-2", "not yours")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	// Failed mutations must not invalidate: the cached copy is still valid.
	_, err = f.backend.Get(ctx, CacheKey(rec.ID))
	require.NoError(t, err)

	got, err := f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)
}

func TestDelete_RemovesRecordAndCacheEntry(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "ephemeral")
	require.NoError(t, err)
	_, err = f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.ID, "user-1"))

	_, err = f.backend.Get(ctx, CacheKey(rec.ID))
	require.ErrorIs(t, err, cache.ErrMiss)

	_, err = f.svc.Read(ctx, rec.ID)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestDelete_NonOwner(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "keep me")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, rec.ID, "user-2")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	_, err = f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
}

func TestGetAnalysis(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.svc.Create(ctx, "user-1", "Hello world. Bye!")
	require.NoError(t, err)

	analysis, err := f.svc.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, 3, analysis.Words)
	assert.Equal(t, 2, analysis.Sentences)

	_, err = f.svc.GetAnalysis(ctx, "no-such-id")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

// outageBackend fails every operation, simulating an unreachable cache.
type outageBackend struct{}

func (outageBackend) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (outageBackend) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func (outageBackend) Del(context.Context, string) error {
	return errors.New("connection refused")
}

func TestCacheOutage_AllOperationsStillCorrect(t *testing.T) {
	ctx := context.Background()
	f := setupWithBackend(t, outageBackend{})

	rec, err := f.svc.Create(ctx, "user-1", "survives outage")
	require.NoError(t, err)

	got, err := f.svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "survives outage", got.Content)

	updated, err := f.svc.Update(ctx, rec.ID, "user-1", "still works")
	require.NoError(t, err)
	assert.Equal(t, "still works", updated.Content)

	analysis, err := f.svc.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, 2, analysis.Words)

	require.NoError(t, f.svc.Delete(ctx, rec.ID, "user-1"))

	_, err = f.svc.Read(ctx, rec.ID)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}
