package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/lk2023060901/doc-ingest/internal/pkg/logger"
	"go.uber.org/zap"
)

// BlockError 单个内容块的可恢复错误，文档其余部分继续处理
type BlockError struct {
	BlockIndex int
	Err        error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d: %v", e.BlockIndex, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// Result 单个文档的分块结果
type Result struct {
	Chunks []*models.Chunk

	// BlockErrors 被拒绝的内容块，不影响其余块的处理
	BlockErrors []*BlockError

	// OversizedCount 超预算的原子分块数量（已告警，非错误）
	OversizedCount int
}

// DocumentChunker 文档分块器。按文档顺序处理内容块，
// 将文本、表格、幻灯片分派给对应的子分块器，组装带元数据的分块序列。
// 单文档的分块是纯同步转换，可安全地跨文档并行。
type DocumentChunker struct {
	cfg      *Config
	sizer    Sizer
	splitter *RecursiveSplitter
	table    *TableChunker
	slide    *SlideChunker
	logger   *logger.Logger
}

// New 创建文档分块器。配置错误在此快速失败，早于任何文档处理。
func New(cfg *Config, log *logger.Logger) (*DocumentChunker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	if log == nil {
		log = logger.L()
	}

	sizer, err := NewSizer(cfg.SizeMetric, cfg.Encoding)
	if err != nil {
		return nil, err
	}

	splitter := NewRecursiveSplitter(sizer, cfg.MaxChunkSize, cfg.OverlapSize, cfg.SplitPriority)

	return &DocumentChunker{
		cfg:      cfg,
		sizer:    sizer,
		splitter: splitter,
		table:    NewTableChunker(sizer, cfg.MaxChunkSize, cfg.TableStrategy),
		slide:    NewSlideChunker(sizer, splitter, cfg.MaxChunkSize, cfg.SlideStrategy),
		logger:   log,
	}, nil
}

// Config 返回分块配置
func (c *DocumentChunker) Config() *Config {
	return c.cfg
}

// accumulator 相邻 paragraph/heading 块的贪心累积器
type accumulator struct {
	text         string
	page         int
	section      []string
	permissions  [][]string
	hasHeading   bool
	hasParagraph bool
}

func (a *accumulator) empty() bool {
	return a.text == ""
}

func (a *accumulator) reset() {
	*a = accumulator{}
}

func (a *accumulator) chunkType() types.ChunkType {
	if a.hasHeading && a.hasParagraph {
		return types.ChunkTypeMixed
	}
	return types.ChunkTypeParagraph
}

// ChunkDocument 将一个文档的有序内容块转换为分块序列。
// 空文档返回空结果，不是错误。
func (c *DocumentChunker) ChunkDocument(ctx context.Context, doc *models.Document) (*Result, error) {
	if doc == nil {
		return nil, models.ErrInvalidDocumentID
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}
	var acc accumulator

	for i := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block := &doc.Blocks[i]

		if err := block.Validate(); err != nil {
			blockErr := &BlockError{BlockIndex: i, Err: err}
			result.BlockErrors = append(result.BlockErrors, blockErr)
			c.logger.Warn("content block rejected",
				zap.String("document_id", doc.ID),
				zap.Int("block_index", i),
				zap.Error(err))
			continue
		}

		switch block.Kind {
		case types.BlockKindParagraph, types.BlockKindHeading:
			c.accumulate(doc, block, &acc, result)

		case types.BlockKindTable:
			c.flushAccumulator(doc, &acc, result)
			c.chunkTableBlock(doc, block, result)

		case types.BlockKindImage:
			c.flushAccumulator(doc, &acc, result)
			c.chunkImageBlock(doc, block, result)

		case types.BlockKindSlideSection:
			c.flushAccumulator(doc, &acc, result)
			c.chunkSlideBlock(doc, block, result)
		}
	}

	c.flushAccumulator(doc, &acc, result)

	return result, nil
}

// accumulate 贪心累积相邻文本块：同一章节内预算不超时追加，
// 超出则先将已累积文本送入递归分割器，再开启新累积
func (c *DocumentChunker) accumulate(doc *models.Document, block *models.ContentBlock, acc *accumulator, result *Result) {
	sameSection := acc.empty() || sectionPath(acc.section) == sectionPath(block.Section)

	if !acc.empty() {
		candidate := acc.text + "\n\n" + block.Text
		if !sameSection || c.sizer.Size(candidate) > c.cfg.MaxChunkSize {
			c.flushAccumulator(doc, acc, result)
		}
	}

	if acc.empty() {
		acc.text = block.Text
		acc.page = block.Page
		acc.section = block.Section
	} else {
		acc.text += "\n\n" + block.Text
	}

	acc.permissions = append(acc.permissions, c.effectivePermissions(doc, block))
	if block.Kind == types.BlockKindHeading {
		acc.hasHeading = true
	} else {
		acc.hasParagraph = true
	}
}

// flushAccumulator 将累积文本送入递归分割器并产出分块
func (c *DocumentChunker) flushAccumulator(doc *models.Document, acc *accumulator, result *Result) {
	if acc.empty() {
		return
	}

	pieces := c.splitter.Split(acc.text)
	permissions := models.UnionPermissions(acc.permissions...)
	chunkType := acc.chunkType()

	for _, piece := range pieces {
		c.appendChunk(doc, result, chunkType, piece, acc.page, acc.section, permissions, "")
	}

	acc.reset()
}

// chunkTableBlock 表格块分派给表格分块器
func (c *DocumentChunker) chunkTableBlock(doc *models.Document, block *models.ContentBlock, result *Result) {
	pieces := c.table.ChunkTable(block.Table)
	permissions := c.effectivePermissions(doc, block)

	for _, piece := range pieces {
		c.appendChunk(doc, result, types.ChunkTypeTable, piece.content, block.Page, block.Section, permissions, "")
	}
}

// chunkImageBlock 图片块作为原子单元产出单个分块，OCR 文本从不拆分。
// 纯图片块内容为空，向量化阶段通过 ImageHandle 取图像向量。
func (c *DocumentChunker) chunkImageBlock(doc *models.Document, block *models.ContentBlock, result *Result) {
	handle := ""
	if block.Image != nil {
		handle = block.Image.EmbeddingHandle
	}

	permissions := c.effectivePermissions(doc, block)
	c.appendChunk(doc, result, types.ChunkTypeImage, block.Text, block.Page, block.Section, permissions, handle)
}

// chunkSlideBlock 幻灯片块分派给幻灯片分块器
func (c *DocumentChunker) chunkSlideBlock(doc *models.Document, block *models.ContentBlock, result *Result) {
	slide := &SlideContent{
		Title:    slideTitle(block.Section),
		Body:     block.Text,
		OCRTexts: block.OCRTexts,
	}

	pieces := c.slide.ChunkSlide(slide)
	permissions := c.effectivePermissions(doc, block)

	for _, piece := range pieces {
		c.appendChunk(doc, result, types.ChunkTypeMixed, piece.content, block.Page, block.Section, permissions, "")
	}
}

// appendChunk 组装分块元数据并分配严格递增的 order index
func (c *DocumentChunker) appendChunk(
	doc *models.Document,
	result *Result,
	chunkType types.ChunkType,
	content string,
	page int,
	section []string,
	permissions []string,
	imageHandle string,
) {
	chunk := models.NewChunk(doc.ID, chunkType, content)
	chunk.TokenEstimate = c.sizer.Size(content)
	chunk.Page = page
	chunk.Section = sectionPath(section)
	chunk.Permissions = permissions
	chunk.OrderIndex = len(result.Chunks)
	chunk.ImageHandle = imageHandle
	chunk.Oversized = chunk.TokenEstimate > c.cfg.MaxChunkSize

	if chunk.Oversized {
		result.OversizedCount++
		c.logger.Warn("oversized atomic chunk emitted",
			zap.String("document_id", doc.ID),
			zap.String("chunk_type", chunkType.String()),
			zap.Int("order_index", chunk.OrderIndex),
			zap.Int("token_estimate", chunk.TokenEstimate),
			zap.Int("max_chunk_size", c.cfg.MaxChunkSize))
	}

	result.Chunks = append(result.Chunks, chunk)
}

// effectivePermissions 块未指定权限时继承文档级默认权限
func (c *DocumentChunker) effectivePermissions(doc *models.Document, block *models.ContentBlock) []string {
	if len(block.Permissions) > 0 {
		return block.Permissions
	}
	return doc.Permissions
}

// sectionPath 标题路径的字符串表示
func sectionPath(section []string) string {
	return strings.Join(section, " > ")
}

// slideTitle 幻灯片标题取标题路径的最后一级
func slideTitle(section []string) string {
	if len(section) == 0 {
		return ""
	}
	return section[len(section)-1]
}
