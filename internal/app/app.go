package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/NdodaEnde/doc-processor/internal/config"
	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/core/agentic"
	"github.com/NdodaEnde/doc-processor/internal/core/batchstore"
	"github.com/NdodaEnde/doc-processor/internal/core/extractor"
	"github.com/NdodaEnde/doc-processor/internal/core/llm"
	"github.com/NdodaEnde/doc-processor/internal/core/mocksdk"
	"github.com/NdodaEnde/doc-processor/internal/services"
)

type App struct {
	Store    *batchstore.MemoryStore
	Parser   core.DocumentParser
	LLM      core.LLMProvider
	Server   *Server
	closeLLM func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	store := batchstore.NewMemoryStore()

	parser := newParser(cfg)
	provider, closeLLM, err := newLLMProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	processSvc := services.NewProcessService(parser, store,
		cfg.UseMock, cfg.DemoFallback,
		time.Duration(cfg.ProcessTimeout)*time.Second)
	questionSvc := services.NewQuestionService(store, provider)

	sdkMode := "REAL"
	if cfg.UseMock {
		sdkMode = "MOCK"
	}
	log.Printf("Document Processing Configuration:")
	log.Printf("  BATCH_SIZE: %d", cfg.BatchSize)
	log.Printf("  MAX_WORKERS: %d", cfg.MaxWorkers)
	log.Printf("  MAX_RETRIES: %d", cfg.MaxRetries)
	log.Printf("  RETRY_LOGGING_STYLE: %s", cfg.RetryLoggingStyle)
	log.Printf("  SDK MODE: %s", sdkMode)

	server := NewServer(cfg, processSvc, questionSvc, store)

	return &App{
		Store:    store,
		Parser:   parser,
		LLM:      provider,
		Server:   server,
		closeLLM: closeLLM,
	}, nil
}

func (a *App) Close() {
	if a.closeLLM != nil {
		if err := a.closeLLM(); err != nil {
			log.Printf("closing LLM client: %v", err)
		}
	}
}

func newParser(cfg *config.Config) core.DocumentParser {
	if cfg.UseMock {
		return mocksdk.NewEngine(extractor.NewPDFExtractor(), mocksdk.Options{
			SimulateLatency: cfg.MockLatency,
		})
	}
	return agentic.NewClient(agentic.Config{
		APIKey:            cfg.VisionAgentAPIKey,
		BatchSize:         cfg.BatchSize,
		MaxWorkers:        cfg.MaxWorkers,
		MaxRetries:        cfg.MaxRetries,
		RetryLoggingStyle: cfg.RetryLoggingStyle,
	}, slog.Default())
}

// newLLMProvider picks the chat backend. Without credentials the question
// service runs its ranking heuristic instead, so a nil provider is valid.
func newLLMProvider(ctx context.Context, cfg *config.Config) (core.LLMProvider, func() error, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, nil
		}
		g, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the gemini provider: %w", err)
		}
		return g, g.Close, nil
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, nil
		}
		c := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
		}, slog.Default())
		return c, nil, nil
	}
}
