package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lk2023060901/doc-ingest/internal/ingest/chunker"
	"github.com/lk2023060901/doc-ingest/internal/ingest/embedding"
	"github.com/lk2023060901/doc-ingest/internal/ingest/loader"
	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/source"
	"github.com/lk2023060901/doc-ingest/internal/ingest/vectorstore"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
)

// Config 流水线配置
type Config struct {
	// Workers 并发处理的文档数
	Workers int `mapstructure:"workers"`

	// EmbedBatchSize 单次向量化请求的分块数
	EmbedBatchSize int `mapstructure:"embed_batch_size"`

	// DefaultPermissions 文档级默认访问标签
	DefaultPermissions []string `mapstructure:"default_permissions"`
}

// SetDefaults 设置默认值
func (c *Config) SetDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() / 2
		if c.Workers < 1 {
			c.Workers = 1
		}
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = 32
	}
}

// Stats 一次运行的累计统计
type Stats struct {
	Documents int64 // 成功处理的文档数
	Chunks    int64 // 写入的分块数
	Oversized int64 // 超出预算的分块数
	Skipped   int64 // 块级错误跳过的内容块数
	Failed    int64 // 处理失败的文档数
}

// DocumentResult 单个文档的处理结果
type DocumentResult struct {
	Item       source.Item
	DocumentID string
	Chunks     int
	Oversized  int
	Err        error
}

// Pipeline 摄入流水线。从来源枚举文档，经解析、分块、向量化
// 写入向量库。文档间并发，单文档内各阶段顺序执行。
type Pipeline struct {
	cfg      *Config
	src      source.Source
	loaders  *loader.Factory
	chunker  *chunker.DocumentChunker
	embedder *embedding.ChunkEmbedder
	store    vectorstore.VectorStore
	pool     *ants.Pool
	logger   *logger.Logger

	stats Stats

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New 创建流水线
func New(cfg *Config, src source.Source, loaders *loader.Factory,
	ch *chunker.DocumentChunker, emb *embedding.ChunkEmbedder,
	store vectorstore.VectorStore, log *logger.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline config is required")
	}
	if src == nil {
		return nil, fmt.Errorf("source is required")
	}
	if loaders == nil {
		return nil, fmt.Errorf("loader factory is required")
	}
	if ch == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if log == nil {
		log = logger.L()
	}

	cfg.SetDefaults()

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Pipeline{
		cfg:      cfg,
		src:      src,
		loaders:  loaders,
		chunker:  ch,
		embedder: emb,
		store:    store,
		pool:     pool,
		logger:   log,
		cancels:  make(map[string]context.CancelFunc),
	}, nil
}

// Run 处理来源内的全部文档，返回按文档的处理结果。
// 单个文档失败不中断其余文档。
func (p *Pipeline) Run(ctx context.Context) ([]DocumentResult, error) {
	items, err := p.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source: %w", err)
	}

	p.logger.Info("starting ingestion run",
		zap.Int("documents", len(items)),
		zap.Int("workers", p.cfg.Workers))

	results := make([]DocumentResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		i, item := i, item
		wg.Add(1)

		if err := p.pool.Submit(func() {
			defer wg.Done()
			results[i] = p.processDocument(ctx, item)
		}); err != nil {
			wg.Done()
			results[i] = DocumentResult{Item: item, Err: err}
			atomic.AddInt64(&p.stats.Failed, 1)
		}
	}

	wg.Wait()

	p.logger.Info("ingestion run finished",
		zap.Int64("documents", atomic.LoadInt64(&p.stats.Documents)),
		zap.Int64("chunks", atomic.LoadInt64(&p.stats.Chunks)),
		zap.Int64("oversized", atomic.LoadInt64(&p.stats.Oversized)),
		zap.Int64("failed", atomic.LoadInt64(&p.stats.Failed)))

	return results, nil
}

// CancelDocument 取消一个正在处理的文档，已排队未写入的分块被丢弃
func (p *Pipeline) CancelDocument(documentID string) bool {
	p.mu.Lock()
	cancel, ok := p.cancels[documentID]
	p.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Stats 返回累计统计的快照
func (p *Pipeline) Stats() Stats {
	return Stats{
		Documents: atomic.LoadInt64(&p.stats.Documents),
		Chunks:    atomic.LoadInt64(&p.stats.Chunks),
		Oversized: atomic.LoadInt64(&p.stats.Oversized),
		Skipped:   atomic.LoadInt64(&p.stats.Skipped),
		Failed:    atomic.LoadInt64(&p.stats.Failed),
	}
}

// Release 释放工作池，调用后不可再使用
func (p *Pipeline) Release() {
	p.pool.Release()
}

func (p *Pipeline) processDocument(ctx context.Context, item source.Item) DocumentResult {
	docID := item.Key

	docCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.cancels[docID] = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.cancels, docID)
		p.mu.Unlock()
	}()

	docCtx = logger.WithDocumentID(docCtx, docID)
	log := p.logger.With(zap.String("document_id", docID))

	result := DocumentResult{Item: item, DocumentID: docID}

	doc, err := p.loadDocument(docCtx, item, docID)
	if err != nil {
		log.Error("failed to load document", zap.Error(err))
		result.Err = err
		atomic.AddInt64(&p.stats.Failed, 1)
		return result
	}

	chunkResult, err := p.chunker.ChunkDocument(docCtx, doc)
	if err != nil {
		log.Error("failed to chunk document", zap.Error(err))
		result.Err = err
		atomic.AddInt64(&p.stats.Failed, 1)
		return result
	}

	for _, be := range chunkResult.BlockErrors {
		log.Warn("skipped block", zap.Int("block", be.BlockIndex), zap.Error(be.Err))
	}
	atomic.AddInt64(&p.stats.Skipped, int64(len(chunkResult.BlockErrors)))

	if err := p.storeChunks(docCtx, chunkResult.Chunks); err != nil {
		log.Error("failed to store chunks", zap.Error(err))
		result.Err = err
		atomic.AddInt64(&p.stats.Failed, 1)
		return result
	}

	result.Chunks = len(chunkResult.Chunks)
	result.Oversized = chunkResult.OversizedCount

	atomic.AddInt64(&p.stats.Documents, 1)
	atomic.AddInt64(&p.stats.Chunks, int64(len(chunkResult.Chunks)))
	atomic.AddInt64(&p.stats.Oversized, int64(chunkResult.OversizedCount))

	log.Info("document processed",
		zap.Int("chunks", result.Chunks),
		zap.Int("oversized", result.Oversized))

	return result
}

func (p *Pipeline) loadDocument(ctx context.Context, item source.Item, docID string) (*models.Document, error) {
	ld, err := p.loaders.CreateLoader(item.Type)
	if err != nil {
		return nil, err
	}

	rc, err := p.src.Open(ctx, item)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	parsed, err := ld.Load(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", item.Key, err)
	}

	blocks := parsed.Blocks
	for i := range blocks {
		blocks[i].DocumentID = docID
	}

	return &models.Document{
		ID:          docID,
		Permissions: p.cfg.DefaultPermissions,
		Blocks:      blocks,
		Metadata:    parsed.Metadata,
	}, nil
}

// storeChunks 按批向量化并写入。批内任一失败整批不写入。
// 文本分块与图片分块的分流由 ChunkEmbedder 处理。
func (p *Pipeline) storeChunks(ctx context.Context, chunks []*models.Chunk) error {
	for start := 0; start < len(chunks); start += p.cfg.EmbedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + p.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := p.embedder.EmbedChunks(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to embed batch: %w", err)
		}

		if err := p.store.UpsertChunks(ctx, batch, vectors); err != nil {
			return err
		}
	}

	return nil
}
