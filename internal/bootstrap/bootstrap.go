package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/finqa/investor-qa/internal/config"
	"github.com/finqa/investor-qa/internal/core/ports"
	"github.com/finqa/investor-qa/internal/core/usecase"
	"github.com/finqa/investor-qa/internal/infrastructure/chunking"
	"github.com/finqa/investor-qa/internal/infrastructure/embedding/ollama"
	"github.com/finqa/investor-qa/internal/infrastructure/extractor"
	"github.com/finqa/investor-qa/internal/infrastructure/extractor/excel"
	"github.com/finqa/investor-qa/internal/infrastructure/extractor/pdf"
	"github.com/finqa/investor-qa/internal/infrastructure/extractor/plaintext"
	"github.com/finqa/investor-qa/internal/infrastructure/provider"
	"github.com/finqa/investor-qa/internal/infrastructure/provider/anthropic"
	"github.com/finqa/investor-qa/internal/infrastructure/provider/gemini"
	"github.com/finqa/investor-qa/internal/infrastructure/provider/openai"
	"github.com/finqa/investor-qa/internal/infrastructure/provider/openrouter"
	"github.com/finqa/investor-qa/internal/infrastructure/queue/nats"
	"github.com/finqa/investor-qa/internal/infrastructure/repository/postgres"
	"github.com/finqa/investor-qa/internal/infrastructure/resilience"
	"github.com/finqa/investor-qa/internal/infrastructure/storage/localfs"
	"github.com/finqa/investor-qa/internal/infrastructure/vector/memory"
	vectorpg "github.com/finqa/investor-qa/internal/infrastructure/vector/postgres"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QuestionAnswerer
	ResetUC   ports.CorpusResetter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}

	var vectorDB ports.VectorStore
	switch cfg.VectorBackend {
	case "memory":
		vectorDB = memory.NewStore()
	default:
		store := vectorpg.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure chunks schema: %w", err)
		}
		vectorDB = store
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	retryPolicy := resilience.DefaultPolicy()
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Resilience: &retryPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{
		Resilience: &retryPolicy,
	})

	registry := buildProviderRegistry(cfg)

	dispatcher := extractor.NewDispatcher(plaintext.NewExtractor(storage))
	dispatcher.Register(".pdf", pdf.NewExtractor(storage))
	dispatcher.Register(".xlsx", excel.NewExtractor(storage))

	chunker := chunking.NewSplitter()

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, dispatcher, chunker, embedder, vectorDB)
	retriever := usecase.NewRetriever(embedder, vectorDB, repo)
	coordinator := usecase.NewCoordinator(registry, ports.GenerationOptions{
		MaxTokens:   cfg.GenerationMaxTokens,
		Temperature: cfg.GenerationTemperature,
	})
	queryUC := usecase.NewQueryUseCase(retriever, coordinator)
	resetUC := usecase.NewResetUseCase(repo, vectorDB, storage)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,
		ResetUC:   resetUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// buildProviderRegistry wires every configured vendor into the fixed
// fallback order. Providers without an API key are left out entirely.
func buildProviderRegistry(cfg config.Config) *provider.Registry {
	timeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second

	// Breaker only, no in-call retry: a failed attempt moves to the next
	// provider instead of hammering the same vendor.
	breakerPolicy := resilience.DefaultPolicy()

	var order []ports.Provider
	add := func(p ports.Provider) {
		order = append(order, provider.WithBreaker(p, breakerPolicy))
	}

	if cfg.AnthropicAPIKey != "" {
		add(anthropic.New("claude", cfg.AnthropicAPIKey, cfg.AnthropicModel, anthropic.Options{Timeout: timeout}))
	}
	if cfg.OpenAIAPIKey != "" {
		add(openai.New("openai-gpt4", cfg.OpenAIAPIKey, "gpt-4", openai.Options{Timeout: timeout}))
		add(openai.New("openai-gpt35", cfg.OpenAIAPIKey, "gpt-3.5-turbo", openai.Options{Timeout: timeout}))
	}
	if cfg.GeminiAPIKey != "" {
		add(gemini.New("gemini-pro", cfg.GeminiAPIKey, cfg.GeminiModel, gemini.Options{Timeout: timeout}))
	}
	if cfg.OpenRouterAPIKey != "" {
		add(openrouter.New("openrouter", cfg.OpenRouterAPIKey, cfg.OpenRouterModel, openrouter.Options{Timeout: timeout}))
	}

	return provider.NewRegistry(order)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
