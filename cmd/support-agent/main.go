// cmd/support-agent/main.go
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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"support-agent/internal/api"
	"support-agent/internal/catalog"
	"support-agent/internal/common/camunda"
	"support-agent/internal/common/config"
	"support-agent/internal/common/database"
	"support-agent/internal/common/logger"
	"support-agent/internal/common/observability"
	"support-agent/internal/index"
	"support-agent/internal/pipeline"
	"support-agent/internal/providers/embedding"
	"support-agent/internal/providers/llm"
	"support-agent/internal/store"
	"support-agent/internal/workers/support"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting support agent",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	if cfg.Tracing.Enabled {
		shutdownTracing, err := observability.InitTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		} else {
			defer shutdownTracing(context.Background())
		}
	}

	// --- PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	st := store.New(pg.DB, log)
	if err := st.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	if cfg.Database.Postgres.SeedSampleData {
		if _, err := st.SeedSampleData(ctx); err != nil {
			zapLog.Fatal("sample data seed failed", zap.Error(err))
		}
	}

	// --- Redis (embedding cache, optional) ---
	var rdb redis.Cmdable
	if cfg.Embedding.Cache.Enabled {
		rc := database.NewRedis(cfg.Database.Redis)
		if err := rc.Ping(ctx); err != nil {
			zapLog.Warn("redis unavailable, embedding cache disabled", zap.Error(err))
			rc.Close()
		} else {
			rdb = rc.Client
			defer rc.Close()
		}
	}

	// --- Providers ---
	embedder, err := embedding.New(cfg.Embedding, rdb, log)
	if err != nil {
		zapLog.Fatal("embedding provider init failed", zap.Error(err))
	}
	provider, err := llm.NewFromConfig(cfg.LLM, log)
	if err != nil {
		zapLog.Fatal("language model provider init failed", zap.Error(err))
	}
	zapLog.Info("providers ready",
		zap.String("llm", provider.Name()),
		zap.String("embeddingModel", embedder.Model()),
	)

	// --- Semantic index ---
	artifacts, err := index.ArtifactsFromConfig(ctx, cfg.Index)
	if err != nil {
		zapLog.Fatal("index artifact store init failed", zap.Error(err))
	}
	if closer, ok := artifacts.(io.Closer); ok {
		defer closer.Close()
	}
	idx := index.New(embedder, artifacts, log)
	if err := idx.Load(ctx); err != nil {
		if !errors.Is(err, index.ErrIndexCorrupted) {
			zapLog.Fatal("index load failed", zap.Error(err))
		}
		zapLog.Warn("index artifacts corrupted, rebuilding from catalog", zap.Error(err))
	}

	var esClient *elasticsearch.Client
	if cfg.Catalog.Source == "elasticsearch" {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch init failed", zap.Error(err))
		}
		if err := retryWithBackoff(func() error { return es.Ping(ctx) }, 10, 2*time.Second, zapLog, "Elasticsearch connection"); err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		esClient = es.Client
	}
	src, err := catalog.NewSource(cfg.Catalog, esClient)
	if err != nil {
		zapLog.Fatal("catalog source init failed", zap.Error(err))
	}
	if _, err := catalog.Sync(ctx, src, idx, log); err != nil {
		zapLog.Warn("catalog sync failed, serving with the current index", zap.Error(err))
	}

	// --- Pipeline ---
	stages := support.NewStages(cfg, support.Deps{
		Classifier: provider,
		Generator:  provider,
		Orders:     st,
		Index:      idx,
	}, log)

	svc := pipeline.New(pipeline.Config{
		HistoryLimit:     cfg.Pipeline.HistoryLimit,
		DefaultUserEmail: cfg.Pipeline.DefaultUserEmail,
	}, stages.Classifier, stages.Retriever, stages.Generator, st, obs, log)

	// --- Camunda job workers (optional) ---
	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zc.Close()

		jobs := make(map[string]camunda.JobHandler)
		opts := make(map[string]camunda.WorkerOptions)
		for taskType, h := range stages.Jobs() {
			wc := config.GetWorkerConfig(cfg, taskType)
			if !wc.Enabled {
				continue
			}
			jobs[taskType] = h
			opts[taskType] = camunda.WorkerOptions{
				MaxJobsActive: wc.MaxJobsActive,
				Timeout:       config.GetDuration(wc.Timeout),
			}
		}
		workers := camunda.StartWorkers(zc.GetClient(), jobs, opts, log)
		defer func() {
			for _, w := range workers {
				w.Stop()
			}
		}()
		zapLog.Info("job workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	checks := map[string]api.ReadinessCheck{
		"postgres": st.Ping,
		"index": func(context.Context) error {
			if idx.Len() == 0 {
				return errors.New("semantic index is empty")
			}
			return nil
		},
		"llm": func(context.Context) error {
			return llm.Healthy(provider)
		},
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewServer(svc, checks, log).Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during HTTP shutdown", zap.Error(err))
	}

	zapLog.Info("Support agent stopped gracefully")
}
