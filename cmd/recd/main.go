package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksonoda/recommender/internal/auth"
	"github.com/ksonoda/recommender/internal/catalog"
	"github.com/ksonoda/recommender/internal/config"
	"github.com/ksonoda/recommender/internal/embedder"
	"github.com/ksonoda/recommender/internal/llm"
	"github.com/ksonoda/recommender/internal/models"
	"github.com/ksonoda/recommender/internal/reranker"
	"github.com/ksonoda/recommender/internal/server"
	"github.com/ksonoda/recommender/internal/service"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting recommendation service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"catalogue_source", cfg.CatalogueSource,
	)

	// Initialize the catalogue source
	var source catalog.Source
	switch cfg.CatalogueSource {
	case "postgres":
		pg, err := catalog.NewPostgresSource(ctx, cfg.DatabaseURL, cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()
		slog.Info("connected to PostgreSQL")
		source = pg
	case "file":
		source = catalog.NewFileSource(cfg.DataDir)
	default:
		return fmt.Errorf("unknown catalogue source %q", cfg.CatalogueSource)
	}

	// Load the catalogue and its embedding matrices before serving
	cat := catalog.New(source, models.EmbeddingModels(), slog.Default())
	if err := cat.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	slog.Info("catalog loaded", "items", cat.Len(), "models", cat.LoadedModels())

	// Initialize the OpenRouter LLM client
	llmClient := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey,
		llm.WithBaseURL(cfg.OpenRouterBaseURL),
		llm.WithModel(cfg.DefaultLLMModel),
	)
	slog.Info("initialized OpenRouter LLM", "model", cfg.DefaultLLMModel)

	// Initialize embedders for both provider kinds
	embedders := service.Embedders{
		Remote: embedder.NewOpenRouterEmbedder(cfg.OpenRouterAPIKey,
			embedder.WithBaseURL(cfg.OpenRouterBaseURL)),
		Local: embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
		}),
	}

	// Initialize the reranker factory
	rerankers := reranker.NewFactory(llmClient, cfg.ZeroEntropyAPIKey,
		reranker.WithSystemPrompt(cfg.SystemPrompt),
		reranker.WithZeroEntropyBaseURL(cfg.ZeroEntropyBaseURL),
	)

	svc := service.NewRecommendService(cfg, cat, llmClient, embedders, rerankers, slog.Default())

	// Authentication is enabled only when a secret is configured
	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
		jwtCfg.Expiry = cfg.JWTExpiry
		jwtManager = auth.NewJWTManager(jwtCfg)
		slog.Info("JWT authentication enabled")
	}

	handlers := server.NewHandlers(svc, cfg, slog.Default())
	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		Auth:           jwtManager,
	}, handlers)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// Start the server
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "port", cfg.HTTPPort)
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ catalog.Source    = (*catalog.FileSource)(nil)
	_ catalog.Source    = (*catalog.PostgresSource)(nil)
	_ embedder.Embedder = (*embedder.OpenRouterEmbedder)(nil)
	_ embedder.Embedder = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM           = (*llm.OpenRouterClient)(nil)
)
