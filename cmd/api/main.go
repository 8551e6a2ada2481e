// ABOUTME: Main entry point for the CropGuard API server
// ABOUTME: Wires together all components and starts the HTTP server

package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropguard-api/api"
	"cropguard-api/api/handlers"
	"cropguard-api/api/middleware"
	"cropguard-api/core/alerts"
	"cropguard-api/core/catalog"
	"cropguard-api/core/i18n"
	"cropguard-api/core/inference"
	"cropguard-api/core/interfaces"
	"cropguard-api/core/profile"
	"cropguard-api/core/readaloud"
	"cropguard-api/core/scan"
	"cropguard-api/infrastructure/cache/memory"
	"cropguard-api/infrastructure/cache/redis"
	stdhttp "cropguard-api/infrastructure/http/standard"
	logruslogger "cropguard-api/infrastructure/logger/logrus"
	"cropguard-api/infrastructure/speech/google"
	"cropguard-api/infrastructure/speech/remote"
	memorystore "cropguard-api/infrastructure/storage/memory"
	redisstore "cropguard-api/infrastructure/storage/redis"
	"cropguard-api/infrastructure/storage/sqlite"
	"cropguard-api/pkg/config"
	"cropguard-api/pkg/featureflags"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logruslogger.New(cfg.Log)
	logger.Info("Starting CropGuard API", map[string]interface{}{
		"port":         cfg.Server.Port,
		"cache_type":   cfg.Cache.Type,
		"storage_type": cfg.Storage.Type,
	})

	// FEATURE_* variables win over these defaults
	flags := featureflags.NewEnvManager("FEATURE_")
	flags.SetDefault(featureflags.RateLimitEnabled, true)
	flags.SetDefault(featureflags.CacheEnabled, true)
	flags.SetDefault(featureflags.DominantColor, true)
	flags.SetDefault(featureflags.AutoTranslate, cfg.Translate.APIKey != "")
	flags.SetDefault(featureflags.AdvisoryFeeds, len(cfg.Alerts.AdvisoryFeeds) > 0)
	flags.SetDefault(featureflags.SpeechSynthesis, cfg.Speech.Enabled)

	cache := newCache(cfg, logger)

	// Outbound calls go through the logging transport so they carry request IDs
	httpClient := stdhttp.NewStandardHTTPClient(30*time.Second,
		stdhttp.WithRateLimit(20, 10),
		stdhttp.WithTransport(&middleware.LoggingRoundTripper{Logger: logger}),
	)

	// User supplied read-aloud URLs only reach public hosts
	pageClient := stdhttp.NewStandardHTTPClient(15*time.Second,
		stdhttp.WithRateLimit(5, 5),
		stdhttp.WithTransport(&middleware.LoggingRoundTripper{Logger: logger, Transport: stdhttp.NewPublicTransport()}),
		stdhttp.WithPublicRedirectsOnly(),
	)

	deps := interfaces.Dependencies{
		Cache:      cache,
		HTTPClient: httpClient,
		Logger:     logger,
		Flags:      flags,
	}
	// Services treat a nil cache as always missing
	if !flags.IsEnabled(context.Background(), featureflags.CacheEnabled) {
		deps.Cache = nil
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to open storage", map[string]interface{}{
			"type":  cfg.Storage.Type,
			"error": err.Error(),
		})
		log.Fatalf("Failed to open storage: %v", err)
	}

	// Create services
	catalogService, err := catalog.NewService()
	if err != nil {
		log.Fatalf("Failed to load disease catalog: %v", err)
	}
	inferenceClient := inference.NewClient(inference.Config{
		URL:     cfg.Inference.URL,
		Timeout: cfg.Inference.Timeout,
		MaxEdge: cfg.Inference.MaxEdge,
	}, deps)
	scanService := scan.NewService(deps, store, inferenceClient, catalogService, scan.NewColorExtractor(deps))
	profileService := profile.NewService(deps, store)
	alertService := alerts.NewService(alerts.Config{
		WindowDays:    cfg.Alerts.WindowDays,
		AdvisoryFeeds: cfg.Alerts.AdvisoryFeeds,
		FeedCacheTTL:  cfg.Alerts.FeedCacheTTL,
	}, deps, store, catalogService)
	translator, err := i18n.NewService(i18n.Config{
		APIKey:   cfg.Translate.APIKey,
		Endpoint: cfg.Translate.Endpoint,
		CacheTTL: cfg.Translate.CacheTTL,
	}, deps)
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	// A nil synthesizer answers 503 and devices fall back to local voices
	var synthesizer interfaces.SpeechSynthesizer
	var synth *google.Synthesizer
	if flags.IsEnabled(context.Background(), featureflags.SpeechSynthesis) {
		synth, err = google.New(context.Background(), google.Config{CacheTTL: cfg.Speech.AudioCacheTTL}, deps)
		if err != nil {
			logger.Warn("Speech synthesis unavailable, devices use local voices", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			synthesizer = synth
		}
	}

	// Read aloud: controllers drive devices over their event streams
	var audioURL remote.AudioURLFunc
	if synthesizer != nil && cfg.Server.PublicURL != "" {
		audioURL = handlers.SpeechURL(cfg.Server.PublicURL)
	}
	bridge := remote.NewBridge(remote.NewHub(remote.DefaultBuffer), audioURL)
	sessions := readaloud.NewRegistry(bridge.Parts, bridge.PublishState, logger, cfg.ReadAloud.IdleTimeout)

	// Create API with middleware
	humaAPI, router, stopLimiter := api.NewAPIWithMiddleware(api.APIConfig{
		Logger:     logger,
		Flags:      flags,
		RateLimit:  cfg.Server.RateLimit,
		RateWindow: cfg.Server.RateWindow,
	})

	// Create and register handlers
	handlers.NewHealthHandler(api.Version, inferenceClient).RegisterRoutes(humaAPI)
	handlers.NewScanHandler(scanService, cfg.Server.MaxUploadBytes).RegisterRoutes(humaAPI)
	handlers.NewCatalogHandler(catalogService).RegisterRoutes(humaAPI)
	handlers.NewProfileHandler(profileService, sessions).RegisterRoutes(humaAPI)
	handlers.NewAlertsHandler(alertService).RegisterRoutes(humaAPI)
	handlers.NewI18nHandler(translator).RegisterRoutes(humaAPI)
	handlers.NewSpeechHandler(synthesizer).RegisterRoutes(humaAPI)
	handlers.NewReadAloudHandler(sessions, bridge, pageClient, logger).RegisterRoutes(humaAPI)

	// Cancelled on shutdown so open event streams end
	baseCtx, cancelStreams := context.WithCancel(context.Background())

	// Create HTTP server. No write timeout: read-aloud event streams stay open.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server starting", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", map[string]interface{}{
				"error": err.Error(),
			})
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...", nil)

	cancelStreams()
	sessions.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stopLimiter()
	translator.Wait()
	if synthesizer != nil {
		_ = synth.Close()
	}
	if err := store.Close(); err != nil {
		logger.Warn("Failed to close storage", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	logger.Info("Server stopped", nil)
}

func newCache(cfg *config.Config, logger interfaces.Logger) interfaces.Cache {
	memoryCache := func() interfaces.Cache {
		return memory.NewMemoryCache(time.Duration(cfg.Cache.Memory.DefaultExpiration)*time.Second, 10*time.Minute)
	}

	if cfg.Cache.Type != "redis" {
		logger.Info("Using memory cache", nil)
		return memoryCache()
	}

	redisCache, err := redis.NewRedisCache(cfg.Cache.Redis)
	if err != nil {
		logger.Error("Failed to create Redis cache, falling back to memory", map[string]interface{}{
			"error": err.Error(),
		})
		return memoryCache()
	}
	logger.Info("Using Redis cache", map[string]interface{}{
		"address": cfg.Cache.Redis.Address,
	})
	return redisCache
}

func newStore(cfg *config.Config) (interfaces.Storage, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memorystore.NewStore(), nil
	case "redis":
		return redisstore.NewStore(cfg.Storage.Redis)
	case "sqlite":
		return sqlite.NewStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func init() {
	fmt.Println(`
   ____                  ____                     _
  / ___|_ __ ___  _ __  / ___|_   _  __ _ _ __ __| |
 | |   | '__/ _ \| '_ \| |  _| | | |/ _' | '__/ _' |
 | |___| | | (_) | |_) | |_| | |_| | (_| | | | (_| |
  \____|_|  \___/| .__/ \____|\__,_|\__,_|_|  \__,_|
                 |_|
	`)
}
