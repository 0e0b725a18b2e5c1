package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/doc-ingest/internal/conf"
	"github.com/lk2023060901/doc-ingest/internal/ingest/chunker"
	"github.com/lk2023060901/doc-ingest/internal/ingest/embedding"
	"github.com/lk2023060901/doc-ingest/internal/ingest/loader"
	"github.com/lk2023060901/doc-ingest/internal/ingest/pipeline"
	"github.com/lk2023060901/doc-ingest/internal/ingest/source"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/ingest/vectorstore"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"github.com/lk2023060901/doc-ingest/internal/pkg/redis"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(&config.Log); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Cancel the run on interrupt, in-flight documents stop at the
	// next stage boundary
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Info("received signal, cancelling run", zap.String("signal", sig.String()))
		cancel()
	}()

	// Initialize document source
	src, err := newSource(ctx, config, log)
	if err != nil {
		log.Fatal("failed to initialize source", zap.Error(err))
	}

	// Initialize chunker, config errors fail here before any processing
	chunkerCfg := config.Chunking.ChunkerConfig()
	documentChunker, err := chunker.New(chunkerCfg, log)
	if err != nil {
		log.Fatal("invalid chunking config", zap.Error(err))
	}

	// Optional embedding cache
	var cache *redis.Client
	if config.Embedding.EnableCache {
		cache, err = redis.New(&config.Redis, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer cache.Close()
	}

	// Initialize embedder, image chunks resolve their vectors through redis
	embedderFactory := embedding.NewFactory(log, cache)
	embedder, err := embedderFactory.CreateChunkEmbedder(&embedding.CreateEmbedderConfig{
		Provider:    types.EmbeddingProvider(config.Embedding.Provider),
		Model:       config.Embedding.Model,
		Dimension:   config.Embedding.Dimension,
		APIKey:      config.Embedding.APIKey,
		BaseURL:     config.Embedding.BaseURL,
		EnableCache: config.Embedding.EnableCache,
		CacheTTL:    config.Embedding.CacheTTL,
	})
	if err != nil {
		log.Fatal("failed to initialize embedder", zap.Error(err))
	}

	// Initialize vector store and ensure the collection exists
	store, err := vectorstore.NewMilvusStore(ctx, &config.Milvus, log.Logger)
	if err != nil {
		log.Fatal("failed to connect to milvus", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("failed to close milvus connection", zap.Error(err))
		}
	}()

	if err := store.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		log.Fatal("failed to ensure collection", zap.Error(err))
	}

	// Initialize pipeline
	p, err := pipeline.New(&config.Pipeline, src, loader.NewFactory(),
		documentChunker, embedder, store, log)
	if err != nil {
		log.Fatal("failed to initialize pipeline", zap.Error(err))
	}
	defer p.Release()

	// Run ingestion
	results, err := p.Run(ctx)
	if err != nil {
		log.Fatal("ingestion run failed", zap.Error(err))
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Error("document failed",
				zap.String("key", r.Item.Key),
				zap.Error(r.Err))
		}
	}

	stats := p.Stats()
	log.Info("ingestion complete",
		zap.Int64("documents", stats.Documents),
		zap.Int64("chunks", stats.Chunks),
		zap.Int64("oversized", stats.Oversized),
		zap.Int64("skipped_blocks", stats.Skipped),
		zap.Int("failed", failed))

	if failed > 0 {
		os.Exit(1)
	}
}

func newSource(ctx context.Context, config *conf.Config, log *logger.Logger) (source.Source, error) {
	switch config.Source.Type {
	case "minio":
		return source.NewMinioSource(ctx, &config.Source.MinIO, log.Logger)
	default:
		return source.NewDirSource(config.Source.Dir)
	}
}
