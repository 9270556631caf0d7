package index

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navassist/internal/corpus"
	"navassist/internal/domain"
	"navassist/internal/embedding/tfidf"
	"navassist/internal/index/snapshot"
	"navassist/internal/vectorstore/memory"
)

// countingEmbedder wraps TF-IDF and counts document embeddings.
type countingEmbedder struct {
	*tfidf.Embedder
	embeds *atomic.Int64
	fail   error
}

func (c countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	c.embeds.Add(1)
	return c.Embedder.Embed(ctx, text)
}

func newBuilder(embeds *atomic.Int64, fail error) *Builder {
	return &Builder{
		NewEmbedder: func() (domain.Embedder, error) {
			return countingEmbedder{Embedder: tfidf.NewEmbedder(), embeds: embeds, fail: fail}, nil
		},
		NewStore: func(string) (domain.VectorStore, error) { return memory.NewStorage(), nil },
	}
}

func sampleCorpus() *corpus.Corpus {
	return corpus.FromDocuments("test", []domain.Document{
		{ID: 0, Content: "manila rope coil"},
		{ID: 1, Content: "steel wire rope"},
		{ID: 2, Content: "lifebuoy ring with light"},
	})
}

func TestBuild_IndexesEveryDocument(t *testing.T) {
	var embeds atomic.Int64
	ix, err := newBuilder(&embeds, nil).Build(context.Background(), sampleCorpus())
	require.NoError(t, err)

	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, int64(3), embeds.Load())
	assert.Equal(t, "tfidf", ix.EmbedderName())
	assert.Equal(t, sampleCorpus().Fingerprint(), ix.Fingerprint())

	vec, err := ix.EmbedQuery(context.Background(), "wire")
	require.NoError(t, err)
	res, err := ix.Nearest(context.Background(), vec, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Document.ID)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	var embeds atomic.Int64
	ix, err := newBuilder(&embeds, nil).Build(context.Background(), corpus.FromDocuments("empty", nil))
	require.NoError(t, err)

	assert.Zero(t, ix.Len())
	res, err := ix.Nearest(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBuild_FailureIsBuildError(t *testing.T) {
	var embeds atomic.Int64
	boom := errors.New("embedding service down")
	_, err := newBuilder(&embeds, boom).Build(context.Background(), sampleCorpus())

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, sampleCorpus().Fingerprint(), be.Fingerprint)
	assert.ErrorIs(t, err, boom)
}

func TestBuild_IdempotentResults(t *testing.T) {
	ctx := context.Background()
	var embeds atomic.Int64
	b := newBuilder(&embeds, nil)
	a, err := b.Build(ctx, sampleCorpus())
	require.NoError(t, err)
	c, err := b.Build(ctx, sampleCorpus())
	require.NoError(t, err)

	for _, q := range []string{"rope", "ring light", "anchor"} {
		va, err := a.EmbedQuery(ctx, q)
		require.NoError(t, err)
		vc, err := c.EmbedQuery(ctx, q)
		require.NoError(t, err)
		ra, err := a.Nearest(ctx, va, 3)
		require.NoError(t, err)
		rc, err := c.Nearest(ctx, vc, 3)
		require.NoError(t, err)
		assert.Equal(t, ra, rc, "query %q", q)
	}
}

func TestBuild_ReusesSnapshot(t *testing.T) {
	ctx := context.Background()
	snaps, err := snapshot.OpenSQLite(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer snaps.Close()

	var embeds atomic.Int64
	b := newBuilder(&embeds, nil)
	b.Snapshots = snaps

	_, err = b.Build(ctx, sampleCorpus())
	require.NoError(t, err)
	require.Equal(t, int64(3), embeds.Load())

	ix, err := b.Build(ctx, sampleCorpus())
	require.NoError(t, err)
	assert.Equal(t, int64(3), embeds.Load(), "second build reads the snapshot")
	assert.Equal(t, 3, ix.Len())
}

func TestCache_MemoizesByFingerprint(t *testing.T) {
	ctx := context.Background()
	var embeds atomic.Int64
	cache := NewCache(newBuilder(&embeds, nil))

	a, err := cache.GetOrBuild(ctx, sampleCorpus())
	require.NoError(t, err)
	b, err := cache.GetOrBuild(ctx, sampleCorpus())
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, int64(1), cache.Builds())

	other := corpus.FromDocuments("other", []domain.Document{{ID: 0, Content: "anchor chain"}})
	c, err := cache.GetOrBuild(ctx, other)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, int64(2), cache.Builds())

	cache.Invalidate(sampleCorpus().Fingerprint())
	d, err := cache.GetOrBuild(ctx, sampleCorpus())
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	assert.Equal(t, int64(3), cache.Builds())
}

func TestCache_ConcurrentCallersShareOneBuild(t *testing.T) {
	ctx := context.Background()
	var embeds atomic.Int64
	cache := NewCache(newBuilder(&embeds, nil))

	const callers = 16
	results := make([]*Index, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ix, err := cache.GetOrBuild(ctx, sampleCorpus())
			assert.NoError(t, err)
			results[i] = ix
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), cache.Builds())
	for _, ix := range results {
		assert.Same(t, results[0], ix)
	}
}

func TestCache_FailedBuildIsNotCached(t *testing.T) {
	ctx := context.Background()
	var embeds atomic.Int64
	cache := NewCache(newBuilder(&embeds, errors.New("down")))

	_, err := cache.GetOrBuild(ctx, sampleCorpus())
	require.Error(t, err)
	_, err = cache.GetOrBuild(ctx, sampleCorpus())
	require.Error(t, err)
	assert.Equal(t, int64(2), cache.Builds())
}

func TestBuild_StoreIsKeyedByFingerprint(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	b := &Builder{
		NewEmbedder: func() (domain.Embedder, error) { return tfidf.NewEmbedder(), nil },
		NewStore: func(fp string) (domain.VectorStore, error) {
			mu.Lock()
			keys = append(keys, fp)
			mu.Unlock()
			return memory.NewStorage(), nil
		},
	}
	first := sampleCorpus()
	second := corpus.FromDocuments("test", []domain.Document{{ID: 0, Content: "anchor chain"}})

	old, err := b.Build(context.Background(), first)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, []string{first.Fingerprint(), second.Fingerprint()}, keys)
	vec, err := old.EmbedQuery(context.Background(), "rope")
	require.NoError(t, err)
	res, err := old.Nearest(context.Background(), vec, 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}
