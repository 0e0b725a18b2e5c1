package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/lk2023060901/doc-ingest/internal/ingest/chunker"
	"github.com/lk2023060901/doc-ingest/internal/ingest/pipeline"
	"github.com/lk2023060901/doc-ingest/internal/ingest/source"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/ingest/vectorstore"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"github.com/lk2023060901/doc-ingest/internal/pkg/redis"
)

type Config struct {
	Log       logger.Config            `mapstructure:"log"`
	Chunking  ChunkingConfig           `mapstructure:"chunking"`
	Embedding EmbeddingConfig          `mapstructure:"embedding"`
	Redis     redis.Config             `mapstructure:"redis"`
	Milvus    vectorstore.MilvusConfig `mapstructure:"milvus"`
	Source    SourceConfig             `mapstructure:"source"`
	Pipeline  pipeline.Config          `mapstructure:"pipeline"`
}

type ChunkingConfig struct {
	MaxChunkSize  int      `mapstructure:"max_chunk_size"`
	OverlapSize   int      `mapstructure:"overlap_size"`
	SplitPriority []string `mapstructure:"split_priority"`
	TableStrategy string   `mapstructure:"table_strategy"`
	SlideStrategy string   `mapstructure:"slide_strategy"`
	SizeMetric    string   `mapstructure:"size_metric"`
	Encoding      string   `mapstructure:"encoding"`
}

type EmbeddingConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Dimension   int           `mapstructure:"dimension"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	EnableCache bool          `mapstructure:"enable_cache"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type SourceConfig struct {
	// Type 来源类型：dir 或 minio
	Type string `mapstructure:"type"`

	// Dir 本地目录路径（type 为 dir 时）
	Dir string `mapstructure:"dir"`

	// MinIO 对象存储配置（type 为 minio 时）
	MinIO source.MinioConfig `mapstructure:"minio"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// ChunkerConfig 转换为分块器配置，缺省项用默认值补齐
func (c *ChunkingConfig) ChunkerConfig() *chunker.Config {
	cfg := chunker.DefaultConfig()

	if c.MaxChunkSize > 0 {
		cfg.MaxChunkSize = c.MaxChunkSize
	}
	if c.OverlapSize > 0 {
		cfg.OverlapSize = c.OverlapSize
	}
	if len(c.SplitPriority) > 0 {
		cfg.SplitPriority = c.SplitPriority
	}
	if c.TableStrategy != "" {
		cfg.TableStrategy = types.TableStrategy(c.TableStrategy)
	}
	if c.SlideStrategy != "" {
		cfg.SlideStrategy = types.SlideStrategy(c.SlideStrategy)
	}
	if c.SizeMetric != "" {
		cfg.SizeMetric = types.SizeMetric(c.SizeMetric)
	}
	if c.Encoding != "" {
		cfg.Encoding = c.Encoding
	}

	return cfg
}
