package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CorpusConfig points at the CSV knowledge source.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SnapshotConfig selects where computed embeddings are persisted between runs.
type SnapshotConfig struct {
	Type   string        `yaml:"type"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
}

// SQLiteConfig locates the snapshot database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig contains connection details for the Redis snapshot store.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	TTLHours    int    `yaml:"ttl_hours"`
}

// RetrievalConfig bounds the local context size.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// FallbackConfig configures the external web search used when the corpus has
// nothing to offer.
type FallbackConfig struct {
	Type            string `yaml:"type"`
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	CXEnv           string `yaml:"cx_env"`
	MaxResults      int    `yaml:"max_results"`
	MinIntervalSecs int    `yaml:"min_interval_secs"`
}

// LLMConfig configures the chat completion model.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// PromptConfig optionally overrides the built-in instruction template.
type PromptConfig struct {
	TemplatePath string `yaml:"template_path"`
}

// TimeoutsConfig bounds each external call of a query turn.
type TimeoutsConfig struct {
	RetrievalSecs  int `yaml:"retrieval_secs"`
	FallbackSecs   int `yaml:"fallback_secs"`
	GenerationSecs int `yaml:"generation_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      CorpusConfig      `yaml:"corpus"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Fallback    FallbackConfig    `yaml:"fallback"`
	LLM         LLMConfig         `yaml:"llm"`
	Prompt      PromptConfig      `yaml:"prompt"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/navassist/config.yaml.
// If neither exists, it writes defaults to ~/.config/navassist/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RetrievalTimeout returns the budget for embedding the query and searching the index.
func (c *AppConfig) RetrievalTimeout() time.Duration {
	return time.Duration(c.Timeouts.RetrievalSecs) * time.Second
}

// FallbackTimeout returns the budget for one web search call.
func (c *AppConfig) FallbackTimeout() time.Duration {
	return time.Duration(c.Timeouts.FallbackSecs) * time.Second
}

// GenerationTimeout returns the budget for one language model call.
func (c *AppConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.Timeouts.GenerationSecs) * time.Second
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "navassist", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus:      CorpusConfig{Path: "merged_data.csv"},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Snapshot:    SnapshotConfig{Type: "none"},
		Fallback:    FallbackConfig{Type: "google"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "merged_data.csv"
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	}
	if o := cfg.Embedder.OpenAI; o != nil {
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = "navassist"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	switch cfg.Snapshot.Type {
	case "":
		cfg.Snapshot.Type = "none"
	case "sqlite":
		if cfg.Snapshot.SQLite == nil {
			cfg.Snapshot.SQLite = &SQLiteConfig{}
		}
		if cfg.Snapshot.SQLite.Path == "" {
			cfg.Snapshot.SQLite.Path = "navassist-index.db"
		}
	case "redis":
		if cfg.Snapshot.Redis == nil {
			cfg.Snapshot.Redis = &RedisConfig{}
		}
		if cfg.Snapshot.Redis.Addr == "" {
			cfg.Snapshot.Redis.Addr = "localhost:6379"
		}
		if cfg.Snapshot.Redis.TTLHours == 0 {
			cfg.Snapshot.Redis.TTLHours = 24 * 7
		}
	}
	f := &cfg.Fallback
	if f.Type == "" {
		f.Type = "google"
	}
	if f.BaseURL == "" {
		f.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if f.APIKeyEnv == "" {
		f.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if f.CXEnv == "" {
		f.CXEnv = "GOOGLE_CSE_ID"
	}
	if f.MaxResults <= 0 || f.MaxResults > 3 {
		f.MaxResults = 3
	}
	if f.MinIntervalSecs == 0 {
		f.MinIntervalSecs = 2
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	t := &cfg.Timeouts
	if t.RetrievalSecs <= 0 {
		t.RetrievalSecs = 30
	}
	if t.FallbackSecs <= 0 {
		t.FallbackSecs = 15
	}
	if t.GenerationSecs <= 0 {
		t.GenerationSecs = 120
	}
}
