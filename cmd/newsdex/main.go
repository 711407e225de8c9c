package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/config"
	"github.com/kailas-cloud/newsdex/internal/db"
	dbRedis "github.com/kailas-cloud/newsdex/internal/db/redis"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/fingerprint"
	logpkg "github.com/kailas-cloud/newsdex/internal/logger"
	"github.com/kailas-cloud/newsdex/internal/metrics"
	"github.com/kailas-cloud/newsdex/internal/repository/dupindex"
	"github.com/kailas-cloud/newsdex/internal/repository/embcache"
	"github.com/kailas-cloud/newsdex/internal/repository/ingest"
	"github.com/kailas-cloud/newsdex/internal/repository/record"
	"github.com/kailas-cloud/newsdex/internal/repository/resultcache"
	openaiTransport "github.com/kailas-cloud/newsdex/internal/transport/openai"
	"github.com/kailas-cloud/newsdex/internal/usecase/analyzer"
	cacheuc "github.com/kailas-cloud/newsdex/internal/usecase/cache"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	"github.com/kailas-cloud/newsdex/internal/usecase/pipeline"
	"github.com/kailas-cloud/newsdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting newsdex pipeline",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("ingest_stream", cfg.Ingest.Stream),
	)

	// Create database store based on driver. rueidis speaks to both.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.Register()

	// Build embedder chain — composition root
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.Provider.APIKey,
		BaseURL:    cfg.Embedding.Provider.BaseURL,
		Model:      cfg.Embedding.Vectorizer.Model,
		Dimensions: cfg.Embedding.Vectorizer.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Vectorizer.Model),
		zap.Int("dimensions", cfg.Embedding.Vectorizer.Dimensions),
	)

	fingerprinter := fingerprint.New(embedder, cfg.Dedup.MinContentLength, logger)

	// Analyzer adapters share one chat transport; each carries its own
	// model, prompts and dispatch settings.
	chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:  cfg.Embedding.Provider.APIKey,
		BaseURL: cfg.Embedding.Provider.BaseURL,
		Logger:  logger,
	})

	specs, ttls, err := buildAnalyzers(cfg.Analyzers, chat)
	if err != nil {
		logger.Fatal("Failed to build analyzers", zap.Error(err))
	}
	if len(specs) == 0 {
		logger.Fatal("No analyzers enabled")
	}
	for _, spec := range specs {
		logger.Info("Analyzer enabled",
			zap.String("analyzer", spec.Analyzer.Name()),
			zap.String("version", spec.Analyzer.Version()),
			zap.Duration("timeout", spec.Timeout),
			zap.Float64("weight", spec.Weight),
		)
	}

	// Create repositories
	index := dupindex.New(store, dupindex.Config{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		Shards:              cfg.Dedup.Shards,
		KeyPrefix:           cfg.Storage.KeyPrefix,
	}, logger)
	sharedCache := resultcache.New(store, cfg.Storage.KeyPrefix, logger)
	records := record.New(store, cfg.Storage.KeyPrefix)
	consumer := ingest.New(store, ingest.Config{
		Stream:    cfg.Ingest.Stream,
		Group:     cfg.Ingest.Group,
		Consumer:  cfg.Ingest.Consumer,
		BatchSize: cfg.Ingest.BatchSize,
		Block:     time.Duration(cfg.Ingest.BlockMS) * time.Millisecond,
	})

	resultCache, err := cacheuc.New(cfg.Pipeline.LocalCacheSize, sharedCache, ttls, logger)
	if err != nil {
		logger.Fatal("Failed to create result cache", zap.Error(err))
	}

	// Orchestrator
	svc := pipeline.New(fingerprinter, index, resultCache, records, specs, logger).
		WithRetry(cfg.Pipeline.MaxAttempts, time.Duration(cfg.Pipeline.RetryBaseMS)*time.Millisecond)

	// Health service — the base embedder carries the provider check, the
	// cached decorator does not.
	healthSvc := healthuc.New(store, baseEmbedder)

	// Ops HTTP server: /metrics, /healthz, /readyz
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		report := healthSvc.Check(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status != healthuc.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting ops HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Run the pipeline until shutdown.
	runErr := make(chan error, 1)
	go func() {
		logger.Info("Starting pipeline workers",
			zap.Int("workers", cfg.Pipeline.Workers),
			zap.Int("max_inflight", cfg.Pipeline.MaxInflight),
		)
		runErr <- svc.Run(ctx, consumer, cfg.Pipeline.Workers, int64(cfg.Pipeline.MaxInflight))
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			logger.Error("Pipeline stopped", zap.Error(err))
		}
	}

	cancel()
	<-runErr // wait for in-flight items to drain

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Pipeline stopped gracefully")
}

// buildAnalyzers assembles dispatch specs and cache TTLs from configuration.
// Sorted by name so startup logs and dispatch order are stable.
func buildAnalyzers(
	cfgs map[string]config.AnalyzerConfig, chat analyzer.ChatCompleter,
) ([]pipeline.AnalyzerSpec, map[string]time.Duration, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]pipeline.AnalyzerSpec, 0, len(names))
	ttls := make(map[string]time.Duration, len(names))
	for _, name := range names {
		ac := cfgs[name]
		if !ac.IsEnabled() {
			continue
		}
		a, err := analyzer.Build(name, ac.Model, chat)
		if err != nil {
			return nil, nil, fmt.Errorf("analyzer %s: %w", name, err)
		}
		specs = append(specs, pipeline.AnalyzerSpec{
			Analyzer: a,
			Timeout:  time.Duration(ac.TimeoutMS) * time.Millisecond,
			Weight:   ac.Weight,
		})
		ttls[name] = time.Duration(ac.CacheTTLSec) * time.Second
	}
	return specs, ttls, nil
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
						"code":    "internal_error",
						"message": "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
