package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// DatabaseConfig holds the Postgres connection settings. The URL is a
// regular postgres:// DSN and is never re-parsed by hand anywhere else.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	Driver         string `yaml:"driver"` // pgdriver or pq
	Debug          bool   `yaml:"debug"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms"`
}

// EmbeddingConfig selects and configures the embedding model.
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"` // ollama, openai or local
	BaseURL       string `yaml:"base_url"`
	Key           string `yaml:"key"`
	Model         string `yaml:"model"`
	Dimension     int    `yaml:"dimension"`
	BatchSize     int    `yaml:"batch_size"`
	MaxInputRunes int    `yaml:"max_input_runes"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Backend       string `yaml:"backend"` // ivf, chromem or pgvector
	Clusters      int    `yaml:"clusters"`
	Probes        int    `yaml:"probes"`
	SampleLimit   int    `yaml:"sample_limit"`
	MaxIterations int    `yaml:"max_iterations"`
	Lists         int    `yaml:"lists"` // pgvector ivfflat lists
	Path          string `yaml:"path"`  // chromem storage directory
	Collection    string `yaml:"collection"`
	InMemory      bool   `yaml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key"`
}

// RAGConfig configures chunking and context assembly.
type RAGConfig struct {
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap"`
	Separators      []string `yaml:"separators"`
	MinSimilarity   float64  `yaml:"min_similarity"`
	MaxContextRunes int      `yaml:"max_context_runes"`
	Workers         int      `yaml:"workers"`
}

// LLMConfig configures the answer generation backend.
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // openai or ollama
	BaseURL       string  `yaml:"base_url"`
	Key           string  `yaml:"key"`
	Model         string  `yaml:"model"`
	MaxAttempts   int     `yaml:"max_attempts"`
	BackoffMS     int     `yaml:"backoff_ms"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	RAG       RAGConfig       `yaml:"rag"`
	LLM       LLMConfig       `yaml:"llm"`
}

// LoadConfig reads the yaml config at path, applies defaults and
// environment overrides for secrets, and validates the result.
// Defaults are filled in before parsing, so an explicit zero in the
// file (chunk_overlap: 0, min_similarity: 0) is kept rather than
// mistaken for an unset field.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == "ollama" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults follow the original deployment: MiniLM-class 384-dim embeddings,
// 500/50 recursive chunking, similarity floor 0.5.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         "pgdriver",
			MaxRetries:     3,
			RetryBackoffMS: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:      "ollama",
			Model:         "all-minilm",
			Dimension:     384,
			BatchSize:     32,
			MaxInputRunes: 2048,
		},
		Index: IndexConfig{
			Backend:       "ivf",
			Clusters:      16,
			Probes:        3,
			SampleLimit:   2048,
			MaxIterations: 12,
			Lists:         100,
			Path:          "./chromemdb",
			Collection:    "document_chunks",
		},
		RAG: RAGConfig{
			ChunkSize:       500,
			ChunkOverlap:    50,
			Separators:      []string{"\n\n", "\n", " ", ""},
			MinSimilarity:   0.5,
			MaxContextRunes: 6000,
			Workers:         4,
		},
		LLM: LLMConfig{
			Provider:      "openai",
			MaxAttempts:   3,
			BackoffMS:     500,
			RatePerSecond: 1,
		},
	}
}

// secrets come from the environment so the yaml file can be committed
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.Key = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.Key = v
	}
}

// Validate rejects configurations the pipeline cannot run with. All
// violations wrap models.ErrInvalidConfig so callers can classify them.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "pgdriver", "pq":
	default:
		return fmt.Errorf("%w: unknown database driver %q", models.ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.MaxRetries < 1 {
		return fmt.Errorf("%w: database max retries must be positive", models.ErrInvalidConfig)
	}
	if c.Database.RetryBackoffMS < 0 {
		return fmt.Errorf("%w: database retry backoff must not be negative", models.ErrInvalidConfig)
	}

	switch c.Embedding.Provider {
	case "ollama", "openai", "local":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive", models.ErrInvalidConfig)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive", models.ErrInvalidConfig)
	}
	if c.Embedding.MaxInputRunes <= 0 {
		return fmt.Errorf("%w: embedding max input must be positive", models.ErrInvalidConfig)
	}

	switch c.Index.Backend {
	case "ivf", "chromem", "pgvector":
	default:
		return fmt.Errorf("%w: unknown index backend %q", models.ErrInvalidConfig, c.Index.Backend)
	}
	if c.Index.Clusters <= 0 || c.Index.Probes <= 0 {
		return fmt.Errorf("%w: index clusters and probes must be positive", models.ErrInvalidConfig)
	}

	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", models.ErrInvalidConfig)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must satisfy 0 <= overlap < chunk size", models.ErrInvalidConfig)
	}
	if c.RAG.ChunkSize > c.Embedding.MaxInputRunes {
		return fmt.Errorf("%w: chunk size %d exceeds embedding max input %d",
			models.ErrInvalidConfig, c.RAG.ChunkSize, c.Embedding.MaxInputRunes)
	}
	if c.RAG.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive", models.ErrInvalidConfig)
	}

	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown llm provider %q", models.ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("%w: llm max attempts must be positive", models.ErrInvalidConfig)
	}
	return nil
}
