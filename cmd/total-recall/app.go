package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/danilop/total-recall/internal/config"
	"github.com/danilop/total-recall/internal/embeddings"
	"github.com/danilop/total-recall/internal/logging"
	"github.com/danilop/total-recall/internal/recall/clisource"
	"github.com/danilop/total-recall/internal/recall/idesource"
	"github.com/danilop/total-recall/internal/recall/index"
	"github.com/danilop/total-recall/internal/recall/loader"
	"github.com/danilop/total-recall/internal/recall/query"
)

// app holds every long-lived component wired together from configuration.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	provider embeddings.Provider
	idx      *index.Index
	engine   *query.Engine
}

// buildApp loads configuration and constructs the embedding provider, the
// conversation loader, the embedding index, and the query engine on top of
// it. The caller owns closing provider resources via app.Close.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if level, err := logging.LevelFromString(cfg.Logging.Level); err == nil {
		logCfg.Level = level
	}
	logCfg.Format = resolveLogFormat(cfg.Logging.Format)
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		CacheDir: cfg.Embedding.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing embedding provider: %w", err)
	}

	cli := clisource.New()
	ide := idesource.New()
	ctx := context.Background()
	warnf := func(format string, args ...any) {
		logger.Warn(ctx, fmt.Sprintf(format, args...))
	}
	cli.Warnf = warnf
	ide.Warnf = warnf

	ld := loader.New(cli, ide, loader.Config{
		CLIEnabled:     cfg.Sources.CLI.Enabled,
		CLIPaths:       cfg.Sources.CLI.Paths,
		IDEEnabled:     cfg.Sources.IDE.Enabled,
		IDEPatterns:    cfg.Sources.IDE.Patterns,
		MaxContentSize: cfg.Search.MaxContentLength,
	}, warnf)

	budget := index.MemoryBudget{NoLimit: cfg.Memory.NoLimit, Fraction: cfg.Memory.Fraction}
	if cfg.Memory.LimitMB > 0 {
		budget.LimitBytes = int64(cfg.Memory.LimitMB) * 1024 * 1024
	}

	idx := index.New(provider, ld, index.Config{
		Model:       cfg.Embedding.Model,
		Dimension:   provider.Dimension(),
		CacheDir:    cacheDir(cfg),
		Budget:      budget,
		LockTimeout: time.Duration(cfg.Embedding.CacheLockTimeoutSeconds) * time.Second,
	})

	engine := query.New(idx, provider)

	return &app{cfg: cfg, logger: logger, provider: provider, idx: idx, engine: engine}, nil
}

// resolveLogFormat applies the RECALL_LOG_FORMAT override on top of the
// configured format, letting an operator flip to console encoding for a
// single run without editing config.yaml.
func resolveLogFormat(configured string) string {
	if format := os.Getenv("RECALL_LOG_FORMAT"); format != "" {
		return format
	}
	return configured
}

// cacheDir returns the configured embedding cache directory, defaulting to
// the per-user cache directory — never a shared system path.
func cacheDir(cfg *config.Config) string {
	if cfg.Embedding.CacheDir != "" {
		return cfg.Embedding.CacheDir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".total-recall-cache"
	}
	return dir + "/total-recall"
}

func (a *app) Close() error {
	if a.provider != nil {
		return a.provider.Close()
	}
	return nil
}
