package source

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioConfig MinIO 对象存储来源配置
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// Validate 验证配置
func (c *MinioConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("minio endpoint is required")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return fmt.Errorf("minio credentials are required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("minio bucket is required")
	}
	return nil
}

// MinioSource 对象存储来源，枚举桶内指定前缀下的文件
type MinioSource struct {
	client *minio.Client
	cfg    *MinioConfig
	logger *zap.Logger
}

// NewMinioSource 创建 MinIO 来源并验证桶存在
func NewMinioSource(ctx context.Context, cfg *MinioConfig, logger *zap.Logger) (*MinioSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid minio config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	logger.Info("minio source initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.Prefix))

	return &MinioSource{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// List 枚举桶内前缀下所有可识别类型的对象
func (s *MinioSource) List(ctx context.Context) ([]Item, error) {
	var items []Item

	objects := s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    s.cfg.Prefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}

		name := path.Base(obj.Key)
		ft, ok := DetectFileType(name)
		if !ok {
			s.logger.Debug("skipping object with unsupported type",
				zap.String("key", obj.Key))
			continue
		}

		items = append(items, Item{
			Key:  obj.Key,
			Name: name,
			Type: ft,
			Size: obj.Size,
		})
	}

	return items, nil
}

// Open 打开一个对象的内容
func (s *MinioSource) Open(ctx context.Context, item Item) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, item.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", item.Key, err)
	}
	return obj, nil
}
