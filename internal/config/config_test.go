package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "merged_data.csv", cfg.Corpus.Path)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "none", cfg.Snapshot.Type)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Fallback.MaxResults)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout())
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
corpus:
  path: data/items.csv
embedder:
  type: openai
snapshot:
  type: sqlite
fallback:
  max_results: 10
timeouts:
  fallback_secs: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/items.csv", cfg.Corpus.Path)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	require.NotNil(t, cfg.Snapshot.SQLite)
	assert.Equal(t, "navassist-index.db", cfg.Snapshot.SQLite.Path)
	assert.Equal(t, 3, cfg.Fallback.MaxResults, "fallback is capped at three locators")
	assert.Equal(t, 5*time.Second, cfg.FallbackTimeout())
	assert.Equal(t, 30*time.Second, cfg.RetrievalTimeout())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7
	cfg.LLM.Temperature = 0.2

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.InDelta(t, 0.2, loaded.LLM.Temperature, 1e-6)
}
