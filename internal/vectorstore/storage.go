package vectorstore

import (
	"fmt"
	"time"

	"navassist/internal/config"
	"navassist/internal/domain"
	"navassist/internal/vectorstore/memory"
	"navassist/internal/vectorstore/qdrant"
)

// New returns the vector store selected by cfg for the corpus version
// identified by fingerprint.
func New(cfg config.VectorStoreConfig, fingerprint string) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: collectionFor(cfg.Qdrant.Collection, fingerprint),
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// collectionFor suffixes base with a fingerprint prefix, so rebuilding for a
// changed corpus never clears the collection an older index still searches.
func collectionFor(base, fingerprint string) string {
	if len(fingerprint) > 12 {
		fingerprint = fingerprint[:12]
	}
	if fingerprint == "" {
		return base
	}
	return base + "_" + fingerprint
}
