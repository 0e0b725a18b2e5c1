package embedding

import (
	"fmt"
	"time"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"github.com/lk2023060901/doc-ingest/internal/pkg/redis"
)

// Factory Embedder 工厂
type Factory struct {
	logger *logger.Logger
	cache  *redis.Client
}

// NewFactory 创建 Embedder 工厂，cache 可为 nil（不启用缓存与图像向量解析）
func NewFactory(lgr *logger.Logger, cache *redis.Client) *Factory {
	if lgr == nil {
		lgr = logger.L()
	}
	return &Factory{
		logger: lgr,
		cache:  cache,
	}
}

// CreateEmbedderConfig 创建 Embedder 配置
type CreateEmbedderConfig struct {
	Provider    types.EmbeddingProvider
	Model       string
	Dimension   int
	APIKey      string
	BaseURL     string
	EnableCache bool
	CacheTTL    time.Duration
}

// CreateEmbedder 创建文本 Embedder
func (f *Factory) CreateEmbedder(cfg *CreateEmbedderConfig) (Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var embedder Embedder
	var err error

	switch cfg.Provider {
	case types.EmbeddingProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(&OpenAIEmbedderConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, f.logger)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if cfg.EnableCache && f.cache != nil {
		embedder = NewCachedEmbedder(embedder, f.cache, cfg.CacheTTL, f.logger)
	}

	return embedder, nil
}

// CreateChunkEmbedder 创建面向分块的向量化器。
// Redis 可用时同时提供图像向量解析，否则图片分块回退到 OCR 文本。
func (f *Factory) CreateChunkEmbedder(cfg *CreateEmbedderConfig) (*ChunkEmbedder, error) {
	embedder, err := f.CreateEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	var images ImageVectorResolver
	if f.cache != nil {
		images = NewRedisImageResolver(f.cache, "")
	}

	return NewChunkEmbedder(embedder, images, f.logger), nil
}
