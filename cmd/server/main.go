package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/humidor/backend/config"
	httpDelivery "github.com/humidor/backend/internal/delivery/http"
	"github.com/humidor/backend/internal/domain"
	"github.com/humidor/backend/internal/infrastructure/cache"
	"github.com/humidor/backend/internal/infrastructure/catalog"
	"github.com/humidor/backend/internal/infrastructure/llm"
	"github.com/humidor/backend/internal/infrastructure/refimage"
	"github.com/humidor/backend/internal/logging"
	"github.com/humidor/backend/internal/usecase"
	"github.com/rs/zerolog"
)

const version = "1.0.0"

// closableCache is a cache the server owns and must close
type closableCache interface {
	domain.CacheRepository
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	format := cfg.Log.Format
	if cfg.Server.Environment == "development" {
		format = "console"
	}
	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  format,
		Service: "humidor-backend",
	})

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("starting humidor backend")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	store, err := catalog.Open(cfg.Catalog.Type, cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	logger.Info().Str("type", cfg.Catalog.Type).Str("path", cfg.Catalog.Path).Msg("catalog opened")

	imageCache, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer imageCache.Close()
	logger.Info().Str("type", cfg.Cache.Type).Dur("ttl", cfg.Cache.TTL).Msg("reference image cache ready")

	model, err := newModelClient(cfg, logger)
	if err != nil {
		return err
	}

	references := usecase.NewReferenceImageLoader(
		usecase.NewReferenceImageCache(imageCache, cfg.Cache.TTL),
		refimage.NewFetcher(refimage.DefaultTimeout, refimage.DefaultMaxBytes),
		cfg.Matching.MaxReferenceImages,
		logger,
	)

	assistant := usecase.NewAssistantService(store, model, references, assistantConfig(cfg), logger)

	logger.Info().
		Int("acceptance_floor", cfg.Matching.AcceptanceFloor).
		Int("confidence_threshold", cfg.Matching.ConfidenceThreshold).
		Bool("debug", cfg.Matching.EnableDebugLogging).
		Msg("matching configured")

	handler := httpDelivery.NewHandler(assistant, store, cfg.Server.MaxImageBytes, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.LLM.Timeout*time.Duration(llm.DefaultMaxAttempts) + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}
	return nil
}

func newCache(cfg *config.Config) (closableCache, error) {
	if cfg.Cache.Type == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: cfg.Cache.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisCache, nil
	}
	return cache.NewMemoryCache(0), nil
}

// assistantConfig leaves MaxTokens unset so each provider applies its own llm.*.max_tokens
func assistantConfig(cfg *config.Config) usecase.AssistantServiceConfig {
	return usecase.AssistantServiceConfig{
		AcceptanceFloor:     cfg.Matching.AcceptanceFloor,
		ConfidenceThreshold: cfg.Matching.ConfidenceThreshold,
		AssumedConfidence:   cfg.Matching.DefaultConfidence,
		BackfillConfidence:  cfg.Matching.BackfillConfidence,
		MaxRecommendations:  cfg.Matching.MaxRecommendations,
		ProductURLBase:      cfg.Catalog.ProductURLBase,
		StrictChatInventory: cfg.Matching.StrictChatInventory,
		EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
	}
}

func newModelClient(cfg *config.Config, logger zerolog.Logger) (domain.ModelClient, error) {
	var providers []llm.Provider
	for _, p := range []config.ProviderConfig{cfg.LLM.Primary, cfg.LLM.Secondary} {
		if !p.Enabled() {
			continue
		}
		provider, err := llm.NewProvider(llm.Config{
			Provider:          p.Provider,
			APIKey:            p.APIKey,
			Model:             p.Model,
			BaseURL:           p.BaseURL,
			MaxTokens:         p.MaxTokens,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("provider", provider.Name()).Str("model", p.Model).Msg("model provider configured")
		providers = append(providers, provider)
	}
	return llm.NewFallbackClient(logger, providers...), nil
}
