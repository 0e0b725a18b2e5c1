package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"github.com/lk2023060901/doc-ingest/internal/pkg/redis"
	"go.uber.org/zap"
)

// ImageVectorResolver 图像向量解析接口。
// 图片块携带上游产出的向量句柄，向量化阶段据此取回预计算的图像向量。
type ImageVectorResolver interface {
	Resolve(ctx context.Context, handle string) ([]float32, error)
}

// ChunkEmbedder 面向分块的向量化器。文本分块走 Embedder 批量向量化，
// 带句柄的图片分块通过 ImageVectorResolver 取图像向量。
type ChunkEmbedder struct {
	embedder Embedder
	images   ImageVectorResolver
	logger   *logger.Logger
}

// NewChunkEmbedder 创建分块向量化器，images 可为 nil（图片分块回退到 OCR 文本）
func NewChunkEmbedder(embedder Embedder, images ImageVectorResolver, lgr *logger.Logger) *ChunkEmbedder {
	if lgr == nil {
		lgr = logger.L()
	}
	return &ChunkEmbedder{
		embedder: embedder,
		images:   images,
		logger:   lgr,
	}
}

// EmbedChunks 为一批分块生成向量，结果与输入一一对应。
// 图片分块优先走句柄解析，无解析器时回退到 OCR 文本。
func (e *ChunkEmbedder) EmbedChunks(ctx context.Context, chunks []*models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(chunks))
	var textIdx []int
	var texts []string

	for i, chunk := range chunks {
		if e.useHandle(chunk) {
			vector, err := e.images.Resolve(ctx, chunk.ImageHandle)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve image vector for chunk %s: %w", chunk.ID, err)
			}
			if len(vector) != e.embedder.Dimension() {
				return nil, fmt.Errorf("image vector for handle %s has dimension %d, expected %d",
					chunk.ImageHandle, len(vector), e.embedder.Dimension())
			}
			vectors[i] = vector
			continue
		}

		if chunk.Content == "" {
			return nil, fmt.Errorf("chunk %s has no embeddable content", chunk.ID)
		}
		textIdx = append(textIdx, i)
		texts = append(texts, chunk.Content)
	}

	if len(texts) > 0 {
		embedded, err := e.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(embedded) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(texts))
		}
		for j, idx := range textIdx {
			vectors[idx] = embedded[j]
		}
	}

	e.logger.Debug("embedded chunk batch",
		zap.Int("chunks", len(chunks)),
		zap.Int("text_chunks", len(texts)),
		zap.Int("image_chunks", len(chunks)-len(texts)))

	return vectors, nil
}

// useHandle 图片分块且句柄可解析时走图像向量
func (e *ChunkEmbedder) useHandle(chunk *models.Chunk) bool {
	return chunk.Type == types.ChunkTypeImage && chunk.ImageHandle != "" && e.images != nil
}

// Dimension 返回向量维度
func (e *ChunkEmbedder) Dimension() int {
	return e.embedder.Dimension()
}

// Model 返回底层模型名称
func (e *ChunkEmbedder) Model() string {
	return e.embedder.Model()
}

// RedisImageResolver 基于 Redis 的图像向量解析器。
// 上游解析阶段以句柄为键存入 JSON 编码的向量。
type RedisImageResolver struct {
	cache  *redis.Client
	prefix string
}

// NewRedisImageResolver 创建 Redis 图像向量解析器
func NewRedisImageResolver(cache *redis.Client, prefix string) *RedisImageResolver {
	if prefix == "" {
		prefix = "ingest:image-vector:"
	}
	return &RedisImageResolver{
		cache:  cache,
		prefix: prefix,
	}
}

// Resolve 按句柄取回图像向量
func (r *RedisImageResolver) Resolve(ctx context.Context, handle string) ([]float32, error) {
	if handle == "" {
		return nil, fmt.Errorf("image handle is empty")
	}

	data, err := r.cache.Get(ctx, r.prefix+handle)
	if err != nil {
		return nil, fmt.Errorf("image vector %s not found: %w", handle, err)
	}

	var vector []float32
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		return nil, fmt.Errorf("failed to decode image vector %s: %w", handle, err)
	}

	return vector, nil
}
