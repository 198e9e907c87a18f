package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/becomeliminal/parley-go-sdk/core"
	"github.com/becomeliminal/parley-go-sdk/feedback"
	"github.com/becomeliminal/parley-go-sdk/memory"
	chromemarchive "github.com/becomeliminal/parley-go-sdk/memory/archive/chromem"
	"github.com/becomeliminal/parley-go-sdk/memory/embedder/cached"
	"github.com/becomeliminal/parley-go-sdk/memory/embedder/mock"
	"github.com/becomeliminal/parley-go-sdk/pattern"
)

// config is loaded from the environment (and .env when present).
type config struct {
	Addr            string `env:"PARLEY_ADDR" envDefault:":8080"`
	PatternFile     string `env:"PARLEY_PATTERNS"`
	Debug           bool   `env:"PARLEY_DEBUG"`
	ShortTermCap    int    `env:"PARLEY_STM_CAPACITY" envDefault:"50"`
	LongTermCap     int    `env:"PARLEY_LTM_CAPACITY" envDefault:"500"`
	EmbedCacheBytes int64  `env:"PARLEY_EMBED_CACHE_BYTES" envDefault:"16777216"`
}

func loadConfig() (*config, error) {
	_ = godotenv.Load()

	cfg := &config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (c *config) memoryConfig() *memory.Config {
	cfg := *memory.DefaultConfig
	cfg.ShortTermCapacity = c.ShortTermCap
	cfg.LongTermCapacity = c.LongTermCap
	return &cfg
}

// newEmbedder builds the local embedding stack: the deterministic mock
// behind a ristretto cache. Swap in the onnx embedder (build tag "onnx")
// for real semantic similarity.
func (c *config) newEmbedder() (core.Embedder, error) {
	return cached.New(mock.New(0), c.EmbedCacheBytes)
}

// newStore builds a conversation store with a chromem-go archive behind
// it, so evicted episodes stay searchable for the session's lifetime.
func (c *config) newStore(logger *zap.Logger, conversation string) (*memory.Store, error) {
	archive, err := chromemarchive.New(conversation)
	if err != nil {
		return nil, fmt.Errorf("conversation archive: %w", err)
	}
	return memory.NewStore(c.memoryConfig(),
		memory.WithLogger(logger),
		memory.WithArchive(archive))
}

// newCatalog builds the shared catalog, loading patterns from the
// configured JSON file or falling back to the built-in starter set.
func (c *config) newCatalog(logger *zap.Logger, embedder core.Embedder) (*pattern.Catalog, error) {
	catalog, err := pattern.NewCatalog(embedder, nil, pattern.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := loadPatterns(catalog, c.PatternFile); err != nil {
		return nil, err
	}
	logger.Info("catalog ready", zap.Int("patterns", catalog.Len()))
	return catalog, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parley",
		Short:         "Rule-based dialogue agent with episodic memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newChatCmd())
	root.AddCommand(newServeCmd())
	return root
}

func newLedger() *feedback.Ledger {
	return feedback.NewLedger()
}
