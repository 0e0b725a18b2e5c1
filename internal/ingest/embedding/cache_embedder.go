package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"github.com/lk2023060901/doc-ingest/internal/pkg/redis"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL    = 24 * time.Hour
	defaultCachePrefix = "ingest:embedding:"
)

// CachedEmbedder 带 Redis 缓存的 Embedder 装饰器。
// 重复摄取同一内容时直接复用缓存向量，不再调用 Embedding API。
// 缓存键由模型名和文本共同决定，换模型后旧缓存自然失效。
type CachedEmbedder struct {
	inner  Embedder
	cache  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logger.Logger
}

// NewCachedEmbedder 创建带缓存的 Embedder，ttl 为 0 时使用默认过期时间
func NewCachedEmbedder(inner Embedder, cache *redis.Client, ttl time.Duration, lgr *logger.Logger) *CachedEmbedder {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if lgr == nil {
		lgr = logger.L()
	}

	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		prefix: defaultCachePrefix,
		logger: lgr,
	}
}

// Embed 对单个文本生成向量（带缓存）
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed 批量生成向量，只为缓存未命中的文本发起请求
func (e *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vector, ok := e.lookup(ctx, text); ok {
			vectors[i] = vector
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	e.logger.Debug("embedding cache lookup",
		zap.Int("total", len(texts)),
		zap.Int("misses", len(missTexts)))

	embedded, err := e.inner.BatchEmbed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vector := range embedded {
		vectors[missIdx[j]] = vector
		e.save(ctx, missTexts[j], vector)
	}

	return vectors, nil
}

// Dimension 返回向量维度
func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

// Provider 返回 Provider 名称
func (e *CachedEmbedder) Provider() types.EmbeddingProvider {
	return e.inner.Provider()
}

// Model 返回模型名称
func (e *CachedEmbedder) Model() string {
	return e.inner.Model()
}

// key 缓存键为模型名与文本的联合散列
func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.inner.Model() + "\x00" + text))
	return e.prefix + hex.EncodeToString(sum[:])
}

// lookup 查询缓存，未命中或解码失败时返回 false
func (e *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}

	data, err := e.cache.Get(ctx, e.key(text))
	if err != nil {
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		return nil, false
	}

	return vector, true
}

// save 写入缓存，失败只告警不中断
func (e *CachedEmbedder) save(ctx context.Context, text string, vector []float32) {
	if e.cache == nil {
		return
	}

	data, err := json.Marshal(vector)
	if err != nil {
		e.logger.Warn("failed to encode embedding for cache", zap.Error(err))
		return
	}

	if err := e.cache.Set(ctx, e.key(text), string(data), e.ttl); err != nil {
		e.logger.Warn("failed to cache embedding", zap.Error(err))
	}
}
