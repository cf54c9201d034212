package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cartlens/backend/config"
	httpDelivery "github.com/cartlens/backend/internal/delivery/http"
	"github.com/cartlens/backend/internal/domain"
	"github.com/cartlens/backend/internal/infrastructure/cache"
	"github.com/cartlens/backend/internal/infrastructure/capture"
	"github.com/cartlens/backend/internal/infrastructure/extraction"
	"github.com/cartlens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infow("starting cartlens backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
	)

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache()

	extractor := extraction.NewExtractor(extraction.Config{
		Timeout:            cfg.Extraction.Timeout,
		MaxCandidates:      cfg.Extraction.MaxCandidates,
		CacheTTL:           cfg.Extraction.CacheTTL,
		EnableDebugLogging: cfg.Matching.DebugLogging,
	}, memoryCache, sugar)

	normalizer := capture.NewNormalizer(extractor, sugar)

	// Initialize usecase layer
	matchConfig := usecase.MatchConfig{
		MinConfidence:            domain.Confidence(cfg.Matching.MinConfidence),
		TitleSimilarityThreshold: cfg.Matching.TitleSimilarityThreshold,
		EnableDebugLogging:       cfg.Matching.DebugLogging,
	}
	matcher := usecase.NewMatchingService(matchConfig, sugar)
	enricher := usecase.NewEnrichmentService(matcher, matchConfig, sugar)

	sugar.Infow("matching configured",
		"minConfidence", cfg.Matching.MinConfidence,
		"titleThreshold", cfg.Matching.TitleSimilarityThreshold,
		"debug", cfg.Matching.DebugLogging,
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(enricher, normalizer, sugar)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	sugar.Infow("server listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		sugar.Fatalw("server stopped", "error", err)
	}
}

// buildLogger constructs the zap logger: human-readable in development, JSON
// everywhere else, level taken from config
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Server.Environment == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
