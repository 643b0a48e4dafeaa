// Package app assembles the pipeline components from configuration.
package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"policyrag/internal/chunker"
	"policyrag/internal/config"
	"policyrag/internal/domain"
	"policyrag/internal/embedding/hashing"
	"policyrag/internal/embedding/openai"
	"policyrag/internal/extract"
	"policyrag/internal/llm/extractive"
	llmopenai "policyrag/internal/llm/openai"
	"policyrag/internal/metrics"
	"policyrag/internal/service"
)

// App holds the wired components shared by every command.
type App struct {
	Config   *config.AppConfig
	Logger   arbor.ILogger
	Metrics  *metrics.Metrics
	Embedder domain.Embedder
	Model    domain.LanguageModel
	Manager  *service.Manager
	Query    *service.QueryService
}

// New builds every component. It does not touch the index; call
// Manager.Ensure or Manager.Reindex for that.
func New(cfg *config.AppConfig, logger arbor.ILogger) (*App, error) {
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	model, err := NewLanguageModel(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("language model: %w", err)
	}
	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "recursive", "":
		ch, err = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("chunker: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	m := metrics.New()
	walker := extract.NewWalker(cfg.Documents.Root, logger)
	manager := service.NewManager(service.ManagerConfig{
		Loader:   walker,
		Chunker:  ch,
		Embedder: emb,
		IndexDir: cfg.Index.Dir,
		Logger:   logger,
		Metrics:  m,
	})
	query := service.NewQueryService(manager, emb, model, cfg.Retrieval.TopK, logger, m)

	logger.Info().
		Str("documents", cfg.Documents.Root).
		Str("index", cfg.Index.Dir).
		Str("embedder", emb.Name()).
		Str("llm", model.Name()).
		Strs("extensions", walker.Extensions()).
		Msg("Pipeline assembled")

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Embedder: emb,
		Model:    model,
		Manager:  manager,
		Query:    query,
	}, nil
}

// NewEmbedder selects the embedding provider.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hash":
		dim := hashing.DefaultDimension
		if cfg.Hash != nil {
			dim = cfg.Hash.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:         cfg.OpenAI.BatchSize,
			Concurrency:       cfg.OpenAI.Concurrency,
			MaxRetries:        cfg.OpenAI.MaxRetries,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
}

// NewLanguageModel selects the answer synthesiser.
func NewLanguageModel(cfg config.LLMConfig) (domain.LanguageModel, error) {
	switch cfg.Type {
	case "extractive":
		n := 0
		if cfg.Extractive != nil {
			n = cfg.Extractive.MaxSentences
		}
		return extractive.New(n), nil
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		return llmopenai.NewClient(llmopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
	}
	return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
}
