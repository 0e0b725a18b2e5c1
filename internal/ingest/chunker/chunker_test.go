package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

func charConfig(budget, overlap int) *Config {
	cfg := DefaultConfig()
	cfg.MaxChunkSize = budget
	cfg.OverlapSize = overlap
	cfg.SizeMetric = types.SizeMetricChar
	return cfg
}

func newTestChunker(t *testing.T, budget, overlap int) *DocumentChunker {
	t.Helper()
	c, err := New(charConfig(budget, overlap), nil)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}
	return c
}

func paragraphBlock(docID, text string, page int, section ...string) models.ContentBlock {
	return models.ContentBlock{
		Kind:       types.BlockKindParagraph,
		Text:       text,
		DocumentID: docID,
		Page:       page,
		Section:    section,
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	// 配置错误在任何文档处理前快速失败
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max chunk size", func(c *Config) { c.MaxChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.OverlapSize = -1 }},
		{"overlap equals budget", func(c *Config) { c.OverlapSize = c.MaxChunkSize }},
		{"empty split priority", func(c *Config) { c.SplitPriority = nil }},
		{"unknown table strategy", func(c *Config) { c.TableStrategy = "shuffle" }},
		{"unknown slide strategy", func(c *Config) { c.SlideStrategy = "collage" }},
		{"unknown size metric", func(c *Config) { c.SizeMetric = "bytes" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := charConfig(100, 10)
			tt.mutate(cfg)

			if _, err := New(cfg, nil); err == nil {
				t.Errorf("Expected config validation error, got nil")
			}
		})
	}
}

func TestChunkDocument_OverlapDoesNotMarkOversized(t *testing.T) {
	// 重叠前缀不会把可分割文本推成超预算块
	text := strings.Repeat("a", 55) + "\n" +
		strings.Repeat("b", 55) + "\n" +
		strings.Repeat("c", 55) + "\n"

	c := newTestChunker(t, 60, 10)

	doc := &models.Document{
		ID:     "doc-1",
		Blocks: []models.ContentBlock{paragraphBlock("doc-1", text, 1)},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.OversizedCount != 0 {
		t.Errorf("Expected no oversized chunks, got %d", result.OversizedCount)
	}
	for i, chunk := range result.Chunks {
		if chunk.Oversized {
			t.Errorf("Chunk %d flagged oversized with estimate %d", i, chunk.TokenEstimate)
		}
		if chunk.TokenEstimate > 60 {
			t.Errorf("Chunk %d exceeds budget: %d", i, chunk.TokenEstimate)
		}
	}
}

func TestChunkDocument_EmptyDocument(t *testing.T) {
	c := newTestChunker(t, 100, 0)

	result, err := c.ChunkDocument(context.Background(), &models.Document{ID: "doc-1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("Expected no chunks for an empty document, got %d", len(result.Chunks))
	}
}

func TestChunkDocument_OrderStrictlyIncreasing(t *testing.T) {
	c := newTestChunker(t, 60, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			paragraphBlock("doc-1", strings.Repeat("first paragraph text. ", 5), 1),
			{
				Kind:       types.BlockKindTable,
				DocumentID: "doc-1",
				Page:       2,
				Table: &models.TableData{
					Header: []string{"k", "v"},
					Rows:   [][]string{{"a", "1"}, {"b", "2"}},
				},
			},
			paragraphBlock("doc-1", strings.Repeat("closing remarks here. ", 5), 3),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) < 3 {
		t.Fatalf("Expected at least 3 chunks, got %d", len(result.Chunks))
	}

	for i, chunk := range result.Chunks {
		if chunk.OrderIndex != i {
			t.Errorf("Chunk %d has order index %d", i, chunk.OrderIndex)
		}
		if chunk.DocumentID != "doc-1" {
			t.Errorf("Chunk %d has document id %q", i, chunk.DocumentID)
		}
	}
}

func TestChunkDocument_MergesAdjacentParagraphs(t *testing.T) {
	// 同章节相邻小段落合并为一个分块
	c := newTestChunker(t, 200, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			paragraphBlock("doc-1", "First short paragraph.", 1, "Intro"),
			paragraphBlock("doc-1", "Second short paragraph.", 1, "Intro"),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("Expected 1 merged chunk, got %d", len(result.Chunks))
	}

	want := "First short paragraph.\n\nSecond short paragraph."
	if result.Chunks[0].Content != want {
		t.Errorf("Unexpected merged content: %q", result.Chunks[0].Content)
	}
	if result.Chunks[0].Type != types.ChunkTypeParagraph {
		t.Errorf("Expected paragraph type, got %s", result.Chunks[0].Type)
	}
}

func TestChunkDocument_SectionChangeFlushes(t *testing.T) {
	// 章节变化强制落块，不跨章节合并
	c := newTestChunker(t, 500, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			paragraphBlock("doc-1", "Intro text.", 1, "Intro"),
			paragraphBlock("doc-1", "Details text.", 2, "Details"),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("Expected 2 chunks across sections, got %d", len(result.Chunks))
	}
	if result.Chunks[0].Section != "Intro" || result.Chunks[1].Section != "Details" {
		t.Errorf("Unexpected sections: %q, %q", result.Chunks[0].Section, result.Chunks[1].Section)
	}
}

func TestChunkDocument_MixedType(t *testing.T) {
	// 标题与段落合并产出 mixed 类型
	c := newTestChunker(t, 200, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			{
				Kind:       types.BlockKindHeading,
				Text:       "Background",
				DocumentID: "doc-1",
				Section:    []string{"Background"},
			},
			paragraphBlock("doc-1", "Some context.", 1, "Background"),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(result.Chunks))
	}
	if result.Chunks[0].Type != types.ChunkTypeMixed {
		t.Errorf("Expected mixed type, got %s", result.Chunks[0].Type)
	}
}

func TestChunkDocument_NoCrossKindMerge(t *testing.T) {
	// 不同类型的块从不合并：表格前后的小段落各自成块
	c := newTestChunker(t, 500, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			paragraphBlock("doc-1", "Before the table.", 1),
			{
				Kind:       types.BlockKindTable,
				DocumentID: "doc-1",
				Table: &models.TableData{
					Rows: [][]string{{"a", "1"}},
				},
			},
			paragraphBlock("doc-1", "After the table.", 1),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(result.Chunks))
	}

	wantTypes := []types.ChunkType{
		types.ChunkTypeParagraph,
		types.ChunkTypeTable,
		types.ChunkTypeParagraph,
	}
	for i, want := range wantTypes {
		if result.Chunks[i].Type != want {
			t.Errorf("Chunk %d: expected type %s, got %s", i, want, result.Chunks[i].Type)
		}
	}
}

func TestChunkDocument_ImageAtomic(t *testing.T) {
	// 图片 OCR 文本是原子单元，超预算时整块输出并标记 oversized
	c := newTestChunker(t, 20, 0)

	ocr := strings.Repeat("extracted words ", 5)
	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			{
				Kind:       types.BlockKindImage,
				Text:       ocr,
				DocumentID: "doc-1",
				Image:      &models.ImageData{EmbeddingHandle: "img-7"},
			},
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(result.Chunks))
	}

	chunk := result.Chunks[0]
	if chunk.Content != ocr {
		t.Errorf("OCR text was modified: %q", chunk.Content)
	}
	if !chunk.Oversized {
		t.Errorf("Expected oversized flag on the atomic image chunk")
	}
	if chunk.ImageHandle != "img-7" {
		t.Errorf("Expected image handle, got %q", chunk.ImageHandle)
	}
	if result.OversizedCount != 1 {
		t.Errorf("Expected oversized count 1, got %d", result.OversizedCount)
	}
}

func TestChunkDocument_PureImageBlockKeepsHandleOutOfContent(t *testing.T) {
	// 无 OCR 文本的图片块内容为空，句柄只出现在 ImageHandle 字段
	c := newTestChunker(t, 100, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			{
				Kind:       types.BlockKindImage,
				DocumentID: "doc-1",
				Image:      &models.ImageData{EmbeddingHandle: "img-7"},
			},
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(result.Chunks))
	}

	chunk := result.Chunks[0]
	if chunk.Content != "" {
		t.Errorf("Expected empty content for a pure image block, got %q", chunk.Content)
	}
	if chunk.ImageHandle != "img-7" {
		t.Errorf("Expected image handle, got %q", chunk.ImageHandle)
	}
	if chunk.Oversized {
		t.Errorf("An empty-content image chunk must not be flagged oversized")
	}
}

func TestChunkDocument_PermissionsInheritance(t *testing.T) {
	// 块级权限覆盖文档默认，未指定时继承；合并块取并集
	c := newTestChunker(t, 500, 0)

	doc := &models.Document{
		ID:          "doc-1",
		Permissions: []string{"staff"},
		Blocks: []models.ContentBlock{
			{
				Kind:        types.BlockKindParagraph,
				Text:        "Restricted paragraph.",
				DocumentID:  "doc-1",
				Permissions: []string{"finance"},
			},
			paragraphBlock("doc-1", "Default paragraph.", 1),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("Expected 1 merged chunk, got %d", len(result.Chunks))
	}

	got := result.Chunks[0].Permissions
	want := []string{"finance", "staff"}
	if len(got) != len(want) {
		t.Fatalf("Expected permissions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected permissions %v, got %v", want, got)
		}
	}
}

func TestChunkDocument_InvalidBlockSkipped(t *testing.T) {
	// 损坏的块记录错误并跳过，不中断整个文档
	c := newTestChunker(t, 500, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			paragraphBlock("doc-1", "Good paragraph.", 1),
			{
				Kind:       types.BlockKindTable,
				DocumentID: "doc-1",
				Table:      &models.TableData{},
			},
			paragraphBlock("doc-1", "Another good paragraph.", 2),
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.BlockErrors) != 1 {
		t.Fatalf("Expected 1 block error, got %d", len(result.BlockErrors))
	}
	if result.BlockErrors[0].BlockIndex != 1 {
		t.Errorf("Expected block index 1, got %d", result.BlockErrors[0].BlockIndex)
	}
	if len(result.Chunks) == 0 {
		t.Errorf("Expected chunks from the valid blocks")
	}
}

func TestChunkDocument_SlideSection(t *testing.T) {
	c := newTestChunker(t, 300, 0)

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			{
				Kind:       types.BlockKindSlideSection,
				Text:       "Revenue grew in all regions.",
				DocumentID: "doc-1",
				Page:       9,
				Section:    []string{"Q3 Review", "Results"},
				OCRTexts:   []string{"chart: growth"},
			},
		},
	}

	result, err := c.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(result.Chunks))
	}

	chunk := result.Chunks[0]
	if chunk.Content != "Results\n\nRevenue grew in all regions.\n\nchart: growth" {
		t.Errorf("Unexpected slide serialization: %q", chunk.Content)
	}
	if chunk.Page != 9 {
		t.Errorf("Expected page 9, got %d", chunk.Page)
	}
	if chunk.Section != "Q3 Review > Results" {
		t.Errorf("Unexpected section path: %q", chunk.Section)
	}
}

func TestChunkDocument_ContextCancelled(t *testing.T) {
	c := newTestChunker(t, 100, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &models.Document{
		ID: "doc-1",
		Blocks: []models.ContentBlock{
			paragraphBlock("doc-1", "Some text.", 1),
		},
	}

	if _, err := c.ChunkDocument(ctx, doc); err == nil {
		t.Errorf("Expected context error, got nil")
	}
}
