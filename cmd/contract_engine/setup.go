package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridline/contract-engine/internal/candidates"
	"github.com/gridline/contract-engine/internal/classify"
	"github.com/gridline/contract-engine/internal/config"
	"github.com/gridline/contract-engine/internal/engine"
	"github.com/gridline/contract-engine/internal/extraction"
	"github.com/gridline/contract-engine/internal/llm"
	"github.com/gridline/contract-engine/internal/merge"
	"github.com/gridline/contract-engine/internal/rulestore"
)

// loadConfig resolves the effective configuration: file (when given), then
// environment, then defaults, then validation.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Config{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}
	cfg.FromEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger; verbose lowers the level to debug.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// buildBackends constructs the configured backend chain order. Backends
// whose API key is missing are skipped with a warning rather than failing
// startup, so a single-provider setup works out of the box.
func buildBackends(ctx context.Context, cfg config.Config, log zerolog.Logger) ([]llm.Backend, func(), error) {
	var backends []llm.Backend
	var closers []func()

	for _, name := range cfg.BackendOrder {
		switch name {
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				log.Warn().Msg("GEMINI_API_KEY not set, skipping gemini backend")
				continue
			}
			backend, err := llm.NewGeminiBackend(ctx, cfg.GeminiAPIKey, "")
			if err != nil {
				return nil, nil, fmt.Errorf("failed to build gemini backend: %w", err)
			}
			backends = append(backends, backend)
			closers = append(closers, func() { _ = backend.Close() })
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				log.Warn().Msg("OPENAI_API_KEY not set, skipping openai backend")
				continue
			}
			backend, err := llm.NewOpenAIBackend(cfg.OpenAIAPIKey, "")
			if err != nil {
				return nil, nil, fmt.Errorf("failed to build openai backend: %w", err)
			}
			backends = append(backends, backend)
		}
	}

	if len(backends) == 0 {
		return nil, nil, fmt.Errorf("no usable backend: set GEMINI_API_KEY or OPENAI_API_KEY")
	}

	cleanup := func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
	return backends, cleanup, nil
}

// buildEngine assembles the full pipeline from configuration. The returned
// cleanup releases backend clients and any database pool.
func buildEngine(ctx context.Context, cfg config.Config, log zerolog.Logger) (*engine.Engine, func(), error) {
	classifier, err := classify.New(classify.DefaultCues())
	if err != nil {
		return nil, nil, err
	}

	backends, closeBackends, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	chainConfig := llm.DefaultChainConfig()
	chainConfig.SizeThresholdBytes = cfg.SizeThresholdBytes
	chainConfig.HardMaxSizeBytes = cfg.HardMaxSizeBytes
	chain, err := llm.NewChain(backends, chainConfig, log)
	if err != nil {
		closeBackends()
		return nil, nil, err
	}

	adapter, err := extraction.NewAdapter(chain, log)
	if err != nil {
		closeBackends()
		return nil, nil, err
	}

	mergeConfig := merge.DefaultConfig()
	mergeConfig.AIConfidenceFloor = cfg.AIConfidenceFloor

	var store rulestore.Store
	cleanup := closeBackends
	if cfg.DatabaseURL != "" {
		pgStore, err := rulestore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			closeBackends()
			return nil, nil, err
		}
		store = pgStore
		cleanup = func() {
			pgStore.Close()
			closeBackends()
		}
	} else {
		log.Debug().Msg("no database configured, using in-memory rule store")
	}

	eng, err := engine.New(classifier, candidates.NewDefault(), adapter, merge.New(mergeConfig), store, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}
