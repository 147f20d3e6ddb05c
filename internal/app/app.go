// Package app wires the process-wide collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/agenthands/reelgraph/internal/config"
	"github.com/agenthands/reelgraph/internal/core"
	"github.com/agenthands/reelgraph/internal/driver"
	"github.com/agenthands/reelgraph/internal/embedding"
	"github.com/agenthands/reelgraph/internal/llm"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/agenthands/reelgraph/internal/metrics"
)

type App struct {
	Config      *config.Config
	Driver      *driver.Neo4jDriver
	Graph       *driver.GraphStore
	Recommender *core.Recommender

	closers []func(context.Context) error
}

// LoadConfig reads the TOML file at path (CONFIG_PATH when empty), applies
// environment overrides and validates the result. A missing file is not an
// error: the defaults apply.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logging.Warn().Str("path", path).Msg("config file not found, using defaults")
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// New connects the graph, loads the embedding artifact and builds the
// recommender. An unreachable graph is logged, not fatal. A missing artifact
// is fatal only when embeddings.required is set.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	d, err := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	a := &App{Config: cfg, Driver: d}
	a.closers = append(a.closers, d.Close)

	a.Graph = driver.NewGraphStore(d, driver.StoreOptions{
		QueryTimeout:    cfg.Graph.QueryTimeout.Duration,
		RetryBackoff:    cfg.Graph.RetryBackoff.Duration,
		BreakerFailures: cfg.Graph.BreakerFailures,
		BreakerOpenFor:  cfg.Graph.BreakerOpenFor.Duration,
		BreakerHalfOpen: cfg.Graph.BreakerHalfOpen,
	})
	if err := a.Graph.Ping(ctx); err != nil {
		logging.Warn().Err(err).Str("uri", cfg.Neo4j.URI).Msg("graph not reachable at startup")
	}

	store, err := embedding.Load(cfg.Embeddings.Path, cfg.Embeddings.Format)
	if err != nil {
		if cfg.Embeddings.Required {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to load embeddings: %w", err)
		}
		logging.Warn().Err(err).Str("path", cfg.Embeddings.Path).Msg("embeddings not loaded, recommendations disabled")
		store = nil
	} else {
		metrics.EmbeddingsLoaded.Set(float64(store.Len()))
		logging.Info().Int("vectors", store.Len()).Int("dim", store.Dim()).Msg("embeddings loaded")
	}

	var narrator core.Narrator
	if cfg.LLM.Enabled {
		client, err := llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			logging.Warn().Err(err).Msg("narration disabled")
		} else {
			narrator = llm.NewNarrator(client, cfg.LLM.Timeout.Duration)
			if c, ok := client.(interface{ Close() error }); ok {
				a.closers = append(a.closers, func(context.Context) error { return c.Close() })
			}
		}
	}

	a.Recommender = core.NewRecommender(a.Graph, store, narrator, cfg)
	return a, nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}
