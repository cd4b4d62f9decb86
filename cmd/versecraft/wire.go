package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/adapters/embedding"
	"github.com/0xcro3dile/versecraft/internal/adapters/events"
	"github.com/0xcro3dile/versecraft/internal/adapters/llm"
	"github.com/0xcro3dile/versecraft/internal/adapters/poemsource"
	"github.com/0xcro3dile/versecraft/internal/adapters/vectordb"
	"github.com/0xcro3dile/versecraft/internal/config"
	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
	"github.com/0xcro3dile/versecraft/internal/domain/usecases"
)

// app is the wired pipeline plus what must be released on exit.
type app struct {
	pipeline *usecases.PoemPipeline
	local    *poemsource.Local // set when source.type is local
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp selects every backend from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	c := usecases.Components{Events: events.Nop{}}

	gen, err := newGenerator(cfg.Generator, logger)
	if err != nil {
		return nil, err
	}
	c.Generator = gen

	if cfg.Generator.PromptTemplateFile != "" {
		prompts, err := usecases.NewPromptBuilderFromFile(cfg.Generator.PromptTemplateFile)
		if err != nil {
			return nil, err
		}
		c.Prompts = prompts
	}

	if cfg.RetrievalEnabled() {
		switch cfg.Source.Type {
		case "local":
			local, err := poemsource.NewLocal(ctx, cfg.Source.Dir, cfg.Source.MaxFragments, logger.Named("source"))
			if err != nil {
				return nil, err
			}
			a.local = local
			c.Source = local
		default:
			c.Source = poemsource.NewPoetryDB(cfg.Source.BaseURL, cfg.Source.MaxFragments, logger.Named("source"))
		}

		c.Embedder, err = newEmbedder(cfg.Embedder, logger)
		if err != nil {
			return nil, err
		}

		indexes, closeIndexes, err := newIndexProvider(ctx, cfg.Index, cfg.Metric())
		if err != nil {
			a.Close()
			return nil, err
		}
		c.Indexes = indexes
		if closeIndexes != nil {
			a.closers = append(a.closers, closeIndexes)
		}
	}

	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger.Named("events"))
		if err != nil {
			a.Close()
			return nil, err
		}
		c.Events = pub
		a.closers = append(a.closers, pub.Close)
	}

	a.pipeline, err = usecases.NewPoemPipeline(c, usecases.PipelineOptions{
		TopK:            cfg.Pipeline.TopK,
		MaxOutputTokens: cfg.Generator.MaxOutputTokens,
		CallTimeout:     cfg.Pipeline.CallTimeout,
	}, logger.Named("pipeline"))
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("pipeline wired",
		zap.String("source", cfg.Source.Type),
		zap.String("embedder", cfg.Embedder.Type),
		zap.String("index", cfg.Index.Type),
		zap.String("generator", gen.Name()),
		zap.Bool("events", cfg.Events.NATSURL != ""))
	return a, nil
}

func newGenerator(cfg config.GeneratorConfig, logger *zap.Logger) (ports.Generator, error) {
	logger = logger.Named("generator")
	switch cfg.Type {
	case "openai":
		return llm.NewOpenAIAdapter(cfg.BaseURL, cfg.Model, cfg.SystemPrompt, logger), nil
	case "ollama":
		return llm.NewOllamaLLMAdapter(cfg.BaseURL, cfg.Model, cfg.SystemPrompt, logger), nil
	case "genai":
		return llm.NewGenAIAdapter(cfg.BaseURL, cfg.Model, cfg.SystemPrompt, logger), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig, logger *zap.Logger) (ports.Embedder, error) {
	logger = logger.Named("embedder")
	switch cfg.Type {
	case "openai":
		return embedding.NewOpenAIAdapter(cfg.BaseURL, cfg.Model, cfg.Dimensions, logger), nil
	case "ollama":
		return embedding.NewOllamaAdapter(cfg.BaseURL, cfg.Model, cfg.Dimensions, logger), nil
	case "genai":
		return embedding.NewGenAIAdapter(cfg.BaseURL, cfg.Model, cfg.Dimensions, logger), nil
	case "hashing":
		return embedding.NewHashingAdapter(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

// newIndexProvider returns the provider and an optional release func.
func newIndexProvider(ctx context.Context, ic config.IndexConfig, metric entities.Metric) (ports.IndexProvider, func(), error) {
	switch ic.Type {
	case "memory":
		return vectordb.NewMemoryProvider(metric), nil, nil
	case "sqlite":
		return vectordb.NewSQLiteProvider(ic.Dir, metric), nil, nil
	case "pgvector":
		p, err := vectordb.NewPgVectorProvider(ctx, ic.DatabaseURL, metric)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index type %q", ic.Type)
	}
}
