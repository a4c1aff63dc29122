package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the story extractor.
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Index      IndexConfig      `yaml:"index"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`    // "mistral" or "mock"
	Model       string `yaml:"model"`       // e.g. "mistral-embed"
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"` // Environment variable for API key
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// GenerationConfig holds generation provider configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "mistral"
	Model       string  `yaml:"model"`    // e.g. "mistral-small-latest"
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// ChunkingConfig holds document splitting configuration.
type ChunkingConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`    // max characters per chunk
	ChunkOverlap int    `yaml:"chunk_overlap"` // characters carried between chunks
	Separator    string `yaml:"separator"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Type   string        `yaml:"type"` // "bolt", "memory" or "qdrant"
	Path   string        `yaml:"path"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a remote Qdrant index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IngestConfig holds story file discovery configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"` // bound on the prompt context block
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:    "mistral",
			Model:       "mistral-embed",
			BaseURL:     "https://api.mistral.ai/v1",
			APIKeyEnv:   "MISTRAL_API_KEY",
			Dimension:   1024,
			BatchSize:   32,
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		Generation: GenerationConfig{
			Provider:    "mistral",
			Model:       "mistral-small-latest",
			BaseURL:     "https://api.mistral.ai/v1",
			APIKeyEnv:   "MISTRAL_API_KEY",
			Temperature: 0,
			MaxTokens:   1024,
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			Separator:    "\n",
		},
		Index: IndexConfig{
			Type: "bolt",
			Path: filepath.Join(".storyrag", "index.db"),
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.*/**"},
		},
		Retrieve: RetrieveConfig{
			TopK:            4,
			MaxContextChars: 6000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for storyrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "storyrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".storyrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexPath resolves the configured index path against dir when relative.
func (c *Config) IndexPath(dir string) string {
	if filepath.IsAbs(c.Index.Path) {
		return c.Index.Path
	}
	return filepath.Join(dir, c.Index.Path)
}
