package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// stubEmbedder 返回以文本长度编码的向量，便于断言对应关系
type stubEmbedder struct {
	calls [][]string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 0}
	}
	return vectors, nil
}

func (e *stubEmbedder) Dimension() int                    { return 2 }
func (e *stubEmbedder) Provider() types.EmbeddingProvider { return types.EmbeddingProviderOpenAI }
func (e *stubEmbedder) Model() string                     { return "stub" }

// stubResolver 内存图像向量表
type stubResolver struct {
	vectors map[string][]float32
}

func (r *stubResolver) Resolve(ctx context.Context, handle string) ([]float32, error) {
	vector, ok := r.vectors[handle]
	if !ok {
		return nil, fmt.Errorf("unknown handle: %s", handle)
	}
	return vector, nil
}

func textChunk(content string) *models.Chunk {
	return models.NewChunk("doc-1", types.ChunkTypeParagraph, content)
}

func imageChunk(content, handle string) *models.Chunk {
	chunk := models.NewChunk("doc-1", types.ChunkTypeImage, content)
	chunk.ImageHandle = handle
	return chunk
}

func TestChunkEmbedder_MixedBatchKeepsOrder(t *testing.T) {
	// 文本与图片分块交错时，结果仍与输入一一对应
	resolver := &stubResolver{vectors: map[string][]float32{
		"img-1": {9, 9},
	}}
	e := NewChunkEmbedder(&stubEmbedder{}, resolver, nil)

	chunks := []*models.Chunk{
		textChunk("abc"),
		imageChunk("", "img-1"),
		textChunk("abcde"),
	}

	vectors, err := e.EmbedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("Expected 3 vectors, got %d", len(vectors))
	}

	if vectors[0][0] != 3 {
		t.Errorf("Expected text vector for chunk 0, got %v", vectors[0])
	}
	if vectors[1][0] != 9 {
		t.Errorf("Expected resolved image vector for chunk 1, got %v", vectors[1])
	}
	if vectors[2][0] != 5 {
		t.Errorf("Expected text vector for chunk 2, got %v", vectors[2])
	}
}

func TestChunkEmbedder_HandlePreferredOverOCRText(t *testing.T) {
	// 图片分块同时携带 OCR 文本和句柄时，向量取自句柄
	resolver := &stubResolver{vectors: map[string][]float32{
		"img-1": {7, 7},
	}}
	stub := &stubEmbedder{}
	e := NewChunkEmbedder(stub, resolver, nil)

	vectors, err := e.EmbedChunks(context.Background(),
		[]*models.Chunk{imageChunk("ocr text", "img-1")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if vectors[0][0] != 7 {
		t.Errorf("Expected the resolved vector, got %v", vectors[0])
	}
	if len(stub.calls) != 0 {
		t.Errorf("Text embedder should not be called for a resolved image chunk")
	}
}

func TestChunkEmbedder_FallsBackToOCRTextWithoutResolver(t *testing.T) {
	e := NewChunkEmbedder(&stubEmbedder{}, nil, nil)

	vectors, err := e.EmbedChunks(context.Background(),
		[]*models.Chunk{imageChunk("ocr", "img-1")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if vectors[0][0] != 3 {
		t.Errorf("Expected the OCR text vector, got %v", vectors[0])
	}
}

func TestChunkEmbedder_HandleOnlyChunkWithoutResolverFails(t *testing.T) {
	e := NewChunkEmbedder(&stubEmbedder{}, nil, nil)

	_, err := e.EmbedChunks(context.Background(),
		[]*models.Chunk{imageChunk("", "img-1")})
	if err == nil {
		t.Errorf("Expected an error for a handle-only chunk without a resolver")
	}
}

func TestChunkEmbedder_ResolvedDimensionMismatchFails(t *testing.T) {
	resolver := &stubResolver{vectors: map[string][]float32{
		"img-1": {1, 2, 3},
	}}
	e := NewChunkEmbedder(&stubEmbedder{}, resolver, nil)

	_, err := e.EmbedChunks(context.Background(),
		[]*models.Chunk{imageChunk("", "img-1")})
	if err == nil {
		t.Errorf("Expected an error for a mismatched image vector dimension")
	}
}

func TestChunkEmbedder_EmptyBatch(t *testing.T) {
	e := NewChunkEmbedder(&stubEmbedder{}, nil, nil)

	vectors, err := e.EmbedChunks(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("Expected no vectors, got %d", len(vectors))
	}
}
