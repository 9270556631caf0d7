// Package index builds the vector index over a corpus and memoizes it per
// corpus fingerprint.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"navassist/internal/corpus"
	"navassist/internal/domain"
	"navassist/internal/embedding"
)

// BuildError reports a failure to embed or store the corpus. Like a corpus
// load failure it leaves nothing to query, so callers treat it as fatal.
type BuildError struct {
	Fingerprint string
	Err         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build index for corpus %.12s: %v", e.Fingerprint, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// SnapshotStore persists computed document vectors between runs.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([][]float64, bool, error)
	Save(ctx context.Context, key string, vectors [][]float64) error
}

// Index is the read-only vector index for one corpus version.
type Index struct {
	fingerprint string
	size        int
	embedder    domain.Embedder
	store       domain.VectorStore
}

// Fingerprint identifies the corpus version the index was built from.
func (ix *Index) Fingerprint() string { return ix.fingerprint }

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return ix.size }

// EmbedderName names the embedding function the vectors came from.
func (ix *Index) EmbedderName() string { return ix.embedder.Name() }

// EmbedQuery embeds text with the same embedder the documents were embedded with.
func (ix *Index) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return ix.embedder.Embed(ctx, text)
}

// Nearest returns up to k documents closest to vec.
func (ix *Index) Nearest(ctx context.Context, vec []float64, k int) ([]domain.SearchResult, error) {
	if ix.size == 0 {
		return nil, nil
	}
	return ix.store.Search(ctx, vec, k)
}

// Builder constructs indexes. Each build gets a fresh embedder and store so
// a cached index is never mutated by a later build.
type Builder struct {
	NewEmbedder func() (domain.Embedder, error)
	// NewStore receives the corpus fingerprint so stores of different
	// corpus versions never share backing storage.
	NewStore  func(fingerprint string) (domain.VectorStore, error)
	Snapshots SnapshotStore
	// SkipSnapshot forces re-embedding; the fresh vectors still overwrite the snapshot.
	SkipSnapshot bool
	Logger       *slog.Logger
}

// Build embeds every document of c and loads the vectors into a store.
func (b *Builder) Build(ctx context.Context, c *corpus.Corpus) (*Index, error) {
	ix, err := b.build(ctx, c)
	if err != nil {
		return nil, &BuildError{Fingerprint: c.Fingerprint(), Err: err}
	}
	return ix, nil
}

func (b *Builder) build(ctx context.Context, c *corpus.Corpus) (*Index, error) {
	log := b.logger().With("fingerprint", shortFingerprint(c.Fingerprint()))
	emb, err := b.NewEmbedder()
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	texts := c.Texts()
	if err := emb.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	ix := &Index{fingerprint: c.Fingerprint(), size: len(texts), embedder: emb}
	if len(texts) == 0 {
		log.Warn("corpus is empty; every query will use the web fallback", "source", c.Source())
		return ix, nil
	}

	key := c.Fingerprint() + ":" + emb.Name()
	vectors := b.loadSnapshot(ctx, log, key, len(texts))
	if vectors == nil {
		vectors, err = embedAll(ctx, emb, texts)
		if err != nil {
			return nil, fmt.Errorf("embed documents: %w", err)
		}
		b.saveSnapshot(ctx, log, key, vectors)
	}

	store, err := b.NewStore(c.Fingerprint())
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if err := store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear vector store: %w", err)
	}
	if err := store.Init(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := store.Upsert(ctx, c.Documents(), vectors); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}
	ix.store = store
	log.Info("index built", "docs", len(texts), "embedder", emb.Name(), "dimension", len(vectors[0]))
	return ix, nil
}

func embedAll(ctx context.Context, emb domain.Embedder, texts []string) ([][]float64, error) {
	if be, ok := emb.(embedding.BatchEmbedder); ok {
		vectors, err := be.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, errors.New("embedder returned wrong number of vectors")
		}
		return vectors, nil
	}
	vectors := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := emb.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// loadSnapshot returns stored vectors for key, or nil when there is no usable snapshot.
func (b *Builder) loadSnapshot(ctx context.Context, log *slog.Logger, key string, n int) [][]float64 {
	if b.Snapshots == nil || b.SkipSnapshot {
		return nil
	}
	vectors, ok, err := b.Snapshots.Load(ctx, key)
	switch {
	case err != nil:
		log.Warn("snapshot load failed; re-embedding", "error", err)
		return nil
	case !ok:
		return nil
	case len(vectors) != n:
		log.Warn("snapshot size mismatch; re-embedding", "want", n, "got", len(vectors))
		return nil
	}
	log.Debug("loaded vectors from snapshot", "docs", n)
	return vectors
}

func (b *Builder) saveSnapshot(ctx context.Context, log *slog.Logger, key string, vectors [][]float64) {
	if b.Snapshots == nil {
		return
	}
	if err := b.Snapshots.Save(ctx, key, vectors); err != nil {
		log.Warn("snapshot save failed", "error", err)
	}
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
