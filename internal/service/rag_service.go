package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"navassist/internal/conversation"
	"navassist/internal/corpus"
	"navassist/internal/domain"
	"navassist/internal/index"
	"navassist/internal/prompt"
)

// Options tunes the per-query pipeline.
type Options struct {
	TopK              int
	Template          string
	RetrievalTimeout  time.Duration
	FallbackTimeout   time.Duration
	GenerationTimeout time.Duration
	Logger            *slog.Logger
}

// Assistant owns the process-wide state shared by every session: the current
// corpus and the index cache. Sessions are created from it.
type Assistant struct {
	cache     *index.Cache
	corpus    atomic.Pointer[corpus.Corpus]
	searcher  domain.WebSearcher
	generator domain.Generator
	opts      Options
	log       *slog.Logger
}

// New wires the pipeline collaborators around corp.
func New(cache *index.Cache, corp *corpus.Corpus, searcher domain.WebSearcher, generator domain.Generator, opts Options) *Assistant {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.Template == "" {
		opts.Template = prompt.DefaultTemplate
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &Assistant{cache: cache, searcher: searcher, generator: generator, opts: opts, log: log}
	a.corpus.Store(corp)
	return a
}

// Warm builds the index for the current corpus. Startup calls it so that an
// index build failure surfaces before any query is accepted.
func (a *Assistant) Warm(ctx context.Context) (*index.Index, error) {
	return a.cache.GetOrBuild(ctx, a.corpus.Load())
}

// Corpus returns the corpus queries are currently answered from.
func (a *Assistant) Corpus() *corpus.Corpus { return a.corpus.Load() }

// Reload switches to corp once its index is built. The previous index stays
// in use until then and is dropped from the cache afterwards.
func (a *Assistant) Reload(ctx context.Context, corp *corpus.Corpus) error {
	old := a.corpus.Load()
	if old != nil && old.Fingerprint() == corp.Fingerprint() {
		return nil
	}
	if _, err := a.cache.GetOrBuild(ctx, corp); err != nil {
		return err
	}
	a.corpus.Store(corp)
	if old != nil {
		a.cache.Invalidate(old.Fingerprint())
	}
	a.log.Info("corpus reloaded", "docs", corp.Len(), "source", corp.Source())
	return nil
}

// NewSession starts a conversation with an empty log.
func (a *Assistant) NewSession() *Session {
	return &Session{assistant: a, log: conversation.NewLog()}
}

func (a *Assistant) index(ctx context.Context) (*index.Index, error) {
	return a.cache.GetOrBuild(ctx, a.corpus.Load())
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
