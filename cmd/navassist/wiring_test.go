package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navassist/internal/config"
	"navassist/internal/corpus"
	"navassist/internal/websearch"
)

func TestOpenIndex_SQLiteSnapshotsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "base.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("description,unit\nmanila rope,coil\nlifebuoy,each\n"), 0o644))

	cfg := &config.AppConfig{
		Corpus:   config.CorpusConfig{Path: csvPath},
		Snapshot: config.SnapshotConfig{Type: "sqlite", SQLite: &config.SQLiteConfig{Path: filepath.Join(dir, "snap.db")}},
	}

	for range 2 {
		c, err := openIndex(cfg, slog.Default())
		require.NoError(t, err)
		ix, err := c.cache.GetOrBuild(context.Background(), c.corpus)
		require.NoError(t, err)
		assert.Equal(t, 2, ix.Len())
		assert.Equal(t, "tfidf", ix.EmbedderName())
		c.Close()
	}
}

func TestOpenIndex_MissingCorpusIsLoadError(t *testing.T) {
	cfg := &config.AppConfig{Corpus: config.CorpusConfig{Path: filepath.Join(t.TempDir(), "missing.csv")}}
	_, err := openIndex(cfg, slog.Default())
	var le *corpus.LoadError
	assert.ErrorAs(t, err, &le)
}

func TestEmbedderFactory_Unknown(t *testing.T) {
	_, err := embedderFactory(config.EmbedderConfig{Type: "word2vec"})()
	assert.ErrorContains(t, err, "unknown embedder")
}

func TestNewSearcher_FallsBackToUnavailable(t *testing.T) {
	s := newSearcher(config.FallbackConfig{Type: "none"}, 0, slog.Default())
	_, err := s.Search(context.Background(), "q")
	assert.Error(t, err)

	t.Setenv("NAVASSIST_TEST_NO_KEY", "")
	s = newSearcher(config.FallbackConfig{Type: "google", APIKeyEnv: "NAVASSIST_TEST_NO_KEY", CXEnv: "NAVASSIST_TEST_NO_CX"}, 0, slog.Default())
	_, ok := s.(websearch.Unavailable)
	assert.True(t, ok)
}
