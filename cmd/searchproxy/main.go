package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/cache"
	"github.com/kailas-cloud/searchproxy/internal/config"
	"github.com/kailas-cloud/searchproxy/internal/domain"
	logpkg "github.com/kailas-cloud/searchproxy/internal/logger"
	"github.com/kailas-cloud/searchproxy/internal/metrics"
	"github.com/kailas-cloud/searchproxy/internal/repository/embcache"
	bedrockTransport "github.com/kailas-cloud/searchproxy/internal/transport/bedrock"
	chiTransport "github.com/kailas-cloud/searchproxy/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/searchproxy/internal/transport/openai"
	"github.com/kailas-cloud/searchproxy/internal/transport/opensearch"
	"github.com/kailas-cloud/searchproxy/internal/transport/sigv4"
	answeruc "github.com/kailas-cloud/searchproxy/internal/usecase/answer"
	askuc "github.com/kailas-cloud/searchproxy/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/searchproxy/internal/usecase/health"
	proxyuc "github.com/kailas-cloud/searchproxy/internal/usecase/proxy"
	rawsearchuc "github.com/kailas-cloud/searchproxy/internal/usecase/rawsearch"
	"github.com/kailas-cloud/searchproxy/internal/usecase/retry"
	"github.com/kailas-cloud/searchproxy/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchproxy API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("endpoint", cfg.Search.Endpoint),
		zap.String("provider", cfg.Models.Provider),
	)

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	signer := sigv4.New(awsCfg.Credentials, logger)
	gateway := opensearch.New(
		&http.Client{Timeout: time.Duration(cfg.Invoke.TimeoutSec) * time.Second},
		signer,
		logger,
	)

	// Optional embedding cache
	var store *cache.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err = cache.NewStore(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
	embedder := buildEmbedder(cfg, bedrockClient, store, logger)
	generator := bedrockTransport.NewGenerator(bedrockClient, logger)

	retryPolicy := retry.New(
		cfg.Invoke.RetryMaxAttempts,
		time.Duration(cfg.Invoke.RetryBaseDelayMS)*time.Millisecond,
		logger,
	)

	askSvc := askuc.New(embedder, gateway, retryPolicy, logger)
	answerSvc := answeruc.New(generator, retryPolicy, logger)
	rawSvc := rawsearchuc.New(gateway, logger)

	proxySvc := proxyuc.New(
		deploymentSearchConfig(cfg),
		rawSvc,
		askSvc,
		answerSvc,
		time.Duration(cfg.Invoke.TimeoutSec)*time.Second,
		logger,
	)

	// Pass nil interface (not typed nil pointer!) if the cache is not configured.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(signer, cachePinger)

	server := chiTransport.NewServer(proxySvc, healthSvc, int64(cfg.Invoke.MaxRequestBytes), logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Post("/v1/proxy", server.Invoke)
	r.Get("/health", server.HealthCheck)
	r.Get("/metrics", server.Metrics)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// deploymentSearchConfig maps the file/env configuration onto the deployment
// layer of the per-invocation resolution cascade.
func deploymentSearchConfig(cfg config.Config) domain.SearchConfig {
	return domain.SearchConfig{
		Endpoint:              cfg.Search.Endpoint,
		Region:                cfg.Search.Region,
		Index:                 cfg.Search.Index,
		TopK:                  cfg.Search.TopK,
		MaxTokens:             cfg.Search.MaxTokens,
		PrimaryContentField:   cfg.Search.PrimaryContentField,
		FallbackContentFields: cfg.Search.FallbackContentFields,
		MetadataFields:        cfg.Search.MetadataFields,
		EmbeddingModelID:      cfg.Models.EmbeddingModelID,
		AnswerModelID:         cfg.Models.AnswerModelID,
		ModelRegion:           cfg.Models.Region,
	}
}

// embedderProvider is what the ask pipeline consumes; both providers and the
// cache decorator implement it.
type embedderProvider interface {
	Embed(ctx context.Context, modelID, region, text string) ([]float32, error)
}

// buildEmbedder assembles the embedding chain: provider -> cache decorator.
func buildEmbedder(
	cfg config.Config,
	bedrockClient *bedrockruntime.Client,
	store *cache.Store,
	logger *zap.Logger,
) embedderProvider {
	var base embedderProvider
	switch cfg.Models.Provider {
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:  cfg.Models.OpenAI.APIKey,
			BaseURL: cfg.Models.OpenAI.BaseURL,
			Logger:  logger,
		})
	default:
		base = bedrockTransport.NewEmbedder(bedrockClient, logger)
	}

	if store == nil {
		return base
	}
	return embcache.New(
		base,
		store,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.EmbeddingCacheTotal,
		logger,
	)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
