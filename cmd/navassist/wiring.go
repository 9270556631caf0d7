package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"navassist/internal/config"
	"navassist/internal/corpus"
	"navassist/internal/domain"
	"navassist/internal/embedding/openai"
	"navassist/internal/embedding/tfidf"
	"navassist/internal/index"
	"navassist/internal/index/snapshot"
	"navassist/internal/llm"
	"navassist/internal/prompt"
	"navassist/internal/service"
	"navassist/internal/vectorstore"
	"navassist/internal/websearch"
)

// components holds everything a command needs, plus the resources to release.
type components struct {
	corpus  *corpus.Corpus
	builder *index.Builder
	cache   *index.Cache
	closers []func() error
}

func (c *components) Close() {
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// openIndex loads the corpus and prepares the index cache. Nothing is
// embedded until the cache is first asked for the index.
func openIndex(cfg *config.AppConfig, log *slog.Logger) (*components, error) {
	corp, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	c := &components{corpus: corp}
	snaps, closer, err := openSnapshots(cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	c.builder = &index.Builder{
		NewEmbedder: embedderFactory(cfg.Embedder),
		NewStore: func(fp string) (domain.VectorStore, error) {
			return vectorstore.New(cfg.VectorStore, fp)
		},
		Snapshots: snaps,
		Logger:    log,
	}
	c.cache = index.NewCache(c.builder)
	return c, nil
}

func embedderFactory(cfg config.EmbedderConfig) func() (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return func() (domain.Embedder, error) { return tfidf.NewEmbedder(), nil }
	case "openai":
		return func() (domain.Embedder, error) {
			if cfg.OpenAI == nil {
				return nil, errors.New("openai embedder config missing")
			}
			return openai.NewClient(openai.Config{
				BaseURL:   cfg.OpenAI.BaseURL,
				APIKeyEnv: cfg.OpenAI.APIKeyEnv,
				Model:     cfg.OpenAI.Model,
				Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
				BatchSize: cfg.OpenAI.BatchSize,
			})
		}
	default:
		return func() (domain.Embedder, error) { return nil, fmt.Errorf("unknown embedder: %s", cfg.Type) }
	}
}

func openSnapshots(cfg config.SnapshotConfig) (index.SnapshotStore, func() error, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil, nil
	case "sqlite":
		s, err := snapshot.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		r := cfg.Redis
		var password string
		if r.PasswordEnv != "" {
			password = os.Getenv(r.PasswordEnv)
		}
		s := snapshot.NewRedis(r.Addr, password, r.DB, time.Duration(r.TTLHours)*time.Hour)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot store: %s", cfg.Type)
	}
}

func newSearcher(cfg config.FallbackConfig, timeout time.Duration, log *slog.Logger) domain.WebSearcher {
	switch cfg.Type {
	case "none":
		return websearch.Unavailable{Err: errors.New("web search disabled in config")}
	case "google", "":
		g, err := websearch.NewGoogle(websearch.GoogleConfig{
			BaseURL:     cfg.BaseURL,
			APIKeyEnv:   cfg.APIKeyEnv,
			CXEnv:       cfg.CXEnv,
			MaxResults:  cfg.MaxResults,
			MinInterval: time.Duration(cfg.MinIntervalSecs) * time.Second,
			Timeout:     timeout,
		})
		if err != nil {
			log.Warn("web search unavailable", "error", err)
			return websearch.Unavailable{Err: err}
		}
		return g
	default:
		err := fmt.Errorf("unknown web search: %s", cfg.Type)
		log.Warn("web search unavailable", "error", err)
		return websearch.Unavailable{Err: err}
	}
}

// newAssistant wires the full question pipeline and builds the index, so an
// unusable corpus or index fails here rather than on the first question.
func newAssistant(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*service.Assistant, *components, error) {
	c, err := openIndex(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	gen, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.GenerationTimeout(),
	})
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("language model: %w", err)
	}
	tmpl, err := prompt.LoadTemplate(cfg.Prompt.TemplatePath)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	a := service.New(c.cache, c.corpus, newSearcher(cfg.Fallback, cfg.FallbackTimeout(), log), gen, service.Options{
		TopK:              cfg.Retrieval.TopK,
		Template:          tmpl,
		RetrievalTimeout:  cfg.RetrievalTimeout(),
		FallbackTimeout:   cfg.FallbackTimeout(),
		GenerationTimeout: cfg.GenerationTimeout(),
		Logger:            log,
	})
	if _, err := a.Warm(ctx); err != nil {
		c.Close()
		return nil, nil, err
	}
	return a, c, nil
}
