package embedding

import (
	"context"
	"fmt"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultEmbeddingModel = string(openai.SmallEmbedding3)
	defaultDimension      = 1536

	// 单次 Embedding 请求的输入条数上限，超过时拆分为多次请求
	maxInputsPerRequest = 128
)

// OpenAIEmbedderConfig OpenAI Embedder 配置
type OpenAIEmbedderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// Validate 校验配置并填充默认值
func (c *OpenAIEmbedderConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.Model == "" {
		c.Model = defaultEmbeddingModel
	}
	if c.Dimension <= 0 {
		c.Dimension = defaultDimension
	}
	return nil
}

// OpenAIEmbedder 基于 OpenAI Embedding API 的实现
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	logger    *logger.Logger
}

// NewOpenAIEmbedder 创建 OpenAI Embedder
func NewOpenAIEmbedder(cfg *OpenAIEmbedderConfig, lgr *logger.Logger) (*OpenAIEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if lgr == nil {
		lgr = logger.L()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	lgr.Info("openai embedder ready",
		zap.String("model", cfg.Model),
		zap.Int("dimension", cfg.Dimension))

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		logger:    lgr,
	}, nil
}

// Embed 对单个文本生成向量
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed 批量生成向量，超过单次请求上限时拆分为多次请求
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxInputsPerRequest {
		end := start + maxInputsPerRequest
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// request 执行一次 Embedding 请求并校验响应
func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimension,
	})
	if err != nil {
		e.logger.Error("embedding request failed",
			zap.String("model", e.model),
			zap.Int("inputs", len(texts)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d",
				i, len(data.Embedding), e.dimension)
		}
		vectors[i] = data.Embedding
	}

	e.logger.Debug("embedding request completed",
		zap.Int("inputs", len(texts)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return vectors, nil
}

// Dimension 返回向量维度
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Provider 返回 Provider 名称
func (e *OpenAIEmbedder) Provider() types.EmbeddingProvider {
	return types.EmbeddingProviderOpenAI
}

// Model 返回模型名称
func (e *OpenAIEmbedder) Model() string {
	return e.model
}
