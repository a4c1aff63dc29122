package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyrag/config"
	"storyrag/internal/adapter/embedding"
	"storyrag/internal/adapter/index"
	"storyrag/internal/adapter/llm"
	"storyrag/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storyrag",
	Short: "Story Character Extractor - index stories and query characters",
	Long: `storyrag indexes short stories into a local vector index and answers
character questions by retrieving relevant passages and asking a language
model for a structured description.

Example usage:
  storyrag index stories/        # Chunk, embed and index story files
  storyrag ask "Alice"           # Extract structured info about a character
  storyrag tui                   # Interactive session
  storyrag clear                 # Remove the index and its data`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// .env is optional; the provider API key may come from it or the
		// environment directly.
		_ = godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./storyrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

// newEmbedder builds the configured embedding provider. A missing API key is
// a startup failure, not a per-call one.
func newEmbedder() (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	case "mistral", "":
		return embedding.NewMistralEmbedder(embedding.Options{
			Model:      e.Model,
			BaseURL:    e.BaseURL,
			APIKeyEnv:  e.APIKeyEnv,
			Dimension:  e.Dimension,
			BatchSize:  e.BatchSize,
			Timeout:    time.Duration(e.TimeoutSecs) * time.Second,
			MaxRetries: e.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

func newLLM() (port.LLM, error) {
	g := cfg.Generation
	switch g.Provider {
	case "mistral", "":
		return llm.NewMistralClient(llm.Options{
			Model:       g.Model,
			BaseURL:     g.BaseURL,
			APIKeyEnv:   g.APIKeyEnv,
			Temperature: g.Temperature,
			MaxTokens:   g.MaxTokens,
			Timeout:     time.Duration(g.TimeoutSecs) * time.Second,
			MaxRetries:  g.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", g.Provider)
	}
}

func newIndex(embedder port.Embedder) (port.VectorIndex, error) {
	switch cfg.Index.Type {
	case "bolt", "":
		return index.NewBoltIndex(embedder, cfg.IndexPath(rootDir), logger), nil
	case "memory":
		return index.NewMemoryIndex(embedder), nil
	case "qdrant":
		q := cfg.Index.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant index selected but no qdrant config given")
		}
		apiKey := ""
		if q.APIKeyEnv != "" {
			apiKey = os.Getenv(q.APIKeyEnv)
		}
		return index.NewQdrantIndex(embedder, index.QdrantOptions{
			URL:        q.URL,
			APIKey:     apiKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Index.Type)
	}
}

func GetRootDir() string {
	return rootDir
}
