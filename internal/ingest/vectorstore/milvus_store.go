package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
)

const (
	fieldChunkID    = "chunk_id"
	fieldDocumentID = "document_id"
	fieldChunkType  = "chunk_type"
	fieldContent    = "content"
	fieldPage       = "page"
	fieldSection    = "section"
	fieldPerms      = "permissions"
	fieldOrderIndex = "order_index"
	fieldOversized  = "oversized"
	fieldTokenCount = "token_count"
	fieldEmbedding  = "embedding"
)

// MilvusConfig Milvus 连接与集合配置
type MilvusConfig struct {
	Address     string        `mapstructure:"address"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	APIKey      string        `mapstructure:"api_key"`
	Database    string        `mapstructure:"database"`
	Collection  string        `mapstructure:"collection"`
	MetricType  string        `mapstructure:"metric_type"`
	NList       int           `mapstructure:"nlist"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Validate 验证配置
func (c *MilvusConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("milvus address is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("milvus collection is required")
	}
	return nil
}

// SetDefaults 设置默认值
func (c *MilvusConfig) SetDefaults() {
	if c.MetricType == "" {
		c.MetricType = "IP"
	}
	if c.NList <= 0 {
		c.NList = 1024
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
}

// MilvusStore 基于 Milvus 的向量存储实现
type MilvusStore struct {
	client    *milvusclient.Client
	cfg       *MilvusConfig
	dimension int
	logger    *zap.Logger
}

// NewMilvusStore 创建 Milvus 向量存储
func NewMilvusStore(ctx context.Context, cfg *MilvusConfig, logger *zap.Logger) (*MilvusStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("milvus config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid milvus config: %w", err)
	}
	cfg.SetDefaults()

	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &milvusclient.ClientConfig{
		Address: cfg.Address,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}
	if cfg.Database != "" {
		clientCfg.DBName = cfg.Database
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	client, err := milvusclient.New(dialCtx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	logger.Info("connected to milvus",
		zap.String("address", cfg.Address),
		zap.String("collection", cfg.Collection))

	return &MilvusStore{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// chunkSchema 分块集合的 Schema。元数据字段全部可过滤，
// permissions 存储为定界标签串（",a,b,"），检索时用 like "%,tag,%" 匹配。
func chunkSchema(collection string, dimension int) *entity.Schema {
	schema := &entity.Schema{
		CollectionName: collection,
		Description:    "document chunks with embeddings",
		Fields: []*entity.Field{
			entity.NewField().WithName(fieldChunkID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64).
				WithIsPrimaryKey(true),
			entity.NewField().WithName(fieldDocumentID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(256),
			entity.NewField().WithName(fieldChunkType).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(32),
			entity.NewField().WithName(fieldContent).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535),
			entity.NewField().WithName(fieldPage).
				WithDataType(entity.FieldTypeInt64),
			entity.NewField().WithName(fieldSection).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(1024),
			entity.NewField().WithName(fieldPerms).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(2048),
			entity.NewField().WithName(fieldOrderIndex).
				WithDataType(entity.FieldTypeInt64),
			entity.NewField().WithName(fieldOversized).
				WithDataType(entity.FieldTypeBool),
			entity.NewField().WithName(fieldTokenCount).
				WithDataType(entity.FieldTypeInt64),
			entity.NewField().WithName(fieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dimension)),
		},
	}
	return schema
}

// EnsureCollection 确保集合存在，不存在则创建、建索引并加载。
// 集合已存在时校验向量维度，与 Embedder 不一致立即失败，不留到写入时报错。
func (s *MilvusStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}
	s.dimension = dimension

	has, err := s.client.HasCollection(ctx,
		milvusclient.NewHasCollectionOption(s.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		desc, err := s.client.DescribeCollection(ctx,
			milvusclient.NewDescribeCollectionOption(s.cfg.Collection))
		if err != nil {
			return fmt.Errorf("failed to describe collection: %w", err)
		}

		existing, err := schemaDimension(desc.Schema, fieldEmbedding)
		if err != nil {
			return err
		}
		if existing != dimension {
			return fmt.Errorf("collection %s has vector dimension %d but the embedder produces %d",
				s.cfg.Collection, existing, dimension)
		}
	}

	if !has {
		schema := chunkSchema(s.cfg.Collection, dimension)
		if err := s.client.CreateCollection(ctx,
			milvusclient.NewCreateCollectionOption(s.cfg.Collection, schema)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx := index.NewIvfFlatIndex(entity.MetricType(s.cfg.MetricType), s.cfg.NList)
		task, err := s.client.CreateIndex(ctx,
			milvusclient.NewCreateIndexOption(s.cfg.Collection, fieldEmbedding, idx))
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index: %w", err)
		}

		s.logger.Info("created milvus collection",
			zap.String("collection", s.cfg.Collection),
			zap.Int("dimension", dimension))
	}

	loadTask, err := s.client.LoadCollection(ctx,
		milvusclient.NewLoadCollectionOption(s.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection load: %w", err)
	}

	return nil
}

// schemaDimension 读取集合 Schema 中向量字段的维度
func schemaDimension(schema *entity.Schema, fieldName string) (int, error) {
	if schema == nil {
		return 0, fmt.Errorf("collection schema is missing")
	}

	for _, field := range schema.Fields {
		if field.Name != fieldName {
			continue
		}
		dim, err := field.GetDim()
		if err != nil {
			return 0, fmt.Errorf("failed to read dimension of field %s: %w", fieldName, err)
		}
		return int(dim), nil
	}

	return 0, fmt.Errorf("collection schema has no field %s", fieldName)
}

// UpsertChunks 写入分块及向量。chunk_id 为主键，重复写入覆盖。
func (s *MilvusStore) UpsertChunks(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}
	if s.dimension <= 0 {
		return fmt.Errorf("collection not initialized, call EnsureCollection first")
	}

	n := len(chunks)
	ids := make([]string, n)
	docIDs := make([]string, n)
	types := make([]string, n)
	contents := make([]string, n)
	pages := make([]int64, n)
	sections := make([]string, n)
	perms := make([]string, n)
	orders := make([]int64, n)
	oversized := make([]bool, n)
	tokens := make([]int64, n)

	for i, chunk := range chunks {
		if len(vectors[i]) != s.dimension {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vectors[i]), s.dimension)
		}
		ids[i] = chunk.ID.String()
		docIDs[i] = chunk.DocumentID
		types[i] = chunk.Type.String()
		contents[i] = chunk.Content
		pages[i] = int64(chunk.Page)
		sections[i] = chunk.Section
		perms[i] = EncodePermissions(chunk.Permissions)
		orders[i] = int64(chunk.OrderIndex)
		oversized[i] = chunk.Oversized
		tokens[i] = int64(chunk.TokenEstimate)
	}

	_, err := s.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(s.cfg.Collection,
		column.NewColumnVarChar(fieldChunkID, ids),
		column.NewColumnVarChar(fieldDocumentID, docIDs),
		column.NewColumnVarChar(fieldChunkType, types),
		column.NewColumnVarChar(fieldContent, contents),
		column.NewColumnInt64(fieldPage, pages),
		column.NewColumnVarChar(fieldSection, sections),
		column.NewColumnVarChar(fieldPerms, perms),
		column.NewColumnInt64(fieldOrderIndex, orders),
		column.NewColumnBool(fieldOversized, oversized),
		column.NewColumnInt64(fieldTokenCount, tokens),
		column.NewColumnFloatVector(fieldEmbedding, s.dimension, vectors),
	))
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	flushTask, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}

	s.logger.Debug("upserted chunks",
		zap.String("collection", s.cfg.Collection),
		zap.Int("count", n))

	return nil
}

// Search 带过滤的近邻检索
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]*ScoredChunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("invalid topK: %d", topK)
	}

	opt := milvusclient.NewSearchOption(s.cfg.Collection, topK,
		[]entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(fieldEmbedding).
		WithOutputFields(fieldDocumentID, fieldChunkType, fieldContent,
			fieldPage, fieldSection, fieldOrderIndex)

	if expr := filter.BuildExpr(); expr != "" {
		opt = opt.WithFilter(expr)
	}

	resultSets, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var results []*ScoredChunk
	for _, rs := range resultSets {
		for j := 0; j < rs.ResultCount; j++ {
			id, err := rs.IDs.Get(j)
			if err != nil {
				return nil, fmt.Errorf("failed to read result id: %w", err)
			}

			sc := &ScoredChunk{
				ChunkID: fmt.Sprintf("%v", id),
				Score:   rs.Scores[j],
			}

			if col := rs.GetColumn(fieldDocumentID); col != nil {
				if v, err := col.Get(j); err == nil {
					sc.DocumentID, _ = v.(string)
				}
			}
			if col := rs.GetColumn(fieldChunkType); col != nil {
				if v, err := col.Get(j); err == nil {
					sc.ChunkType, _ = v.(string)
				}
			}
			if col := rs.GetColumn(fieldContent); col != nil {
				if v, err := col.Get(j); err == nil {
					sc.Content, _ = v.(string)
				}
			}
			if col := rs.GetColumn(fieldPage); col != nil {
				if v, err := col.Get(j); err == nil {
					if p, ok := v.(int64); ok {
						sc.Page = int(p)
					}
				}
			}
			if col := rs.GetColumn(fieldSection); col != nil {
				if v, err := col.Get(j); err == nil {
					sc.Section, _ = v.(string)
				}
			}
			if col := rs.GetColumn(fieldOrderIndex); col != nil {
				if v, err := col.Get(j); err == nil {
					if o, ok := v.(int64); ok {
						sc.OrderIndex = int(o)
					}
				}
			}

			results = append(results, sc)
		}
	}

	return results, nil
}

// DeleteByDocument 删除一个文档的全部分块
func (s *MilvusStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id is required")
	}

	expr := fmt.Sprintf(`document_id == "%s"`, documentID)
	_, err := s.client.Delete(ctx,
		milvusclient.NewDeleteOption(s.cfg.Collection).WithExpr(expr))
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	s.logger.Info("deleted document chunks",
		zap.String("collection", s.cfg.Collection),
		zap.String("document_id", documentID))

	return nil
}

// Close 关闭连接
func (s *MilvusStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(ctx)
}
