package chunker

import (
	"strings"
	"testing"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

func newSlideChunker(budget int, strategy types.SlideStrategy) *SlideChunker {
	sizer := &charSizer{}
	splitter := NewRecursiveSplitter(sizer, budget, 0, DefaultSeparators)
	return NewSlideChunker(sizer, splitter, budget, strategy)
}

func TestSlideChunker_OnePerSlide(t *testing.T) {
	// one-per-slide 策略始终产出单块，超预算时标记 oversized
	chunker := newSlideChunker(50, types.SlideStrategyOnePerSlide)

	slide := &SlideContent{
		Title:    "Quarterly Review",
		Body:     strings.Repeat("revenue grew steadily across regions. ", 5),
		OCRTexts: []string{"chart: revenue by region"},
	}

	pieces := chunker.ChunkSlide(slide)

	if len(pieces) != 1 {
		t.Fatalf("Expected a single piece, got %d", len(pieces))
	}
	if !pieces[0].oversized {
		t.Errorf("Expected the piece to be marked oversized")
	}
	if !strings.HasPrefix(pieces[0].content, "Quarterly Review\n\n") {
		t.Errorf("Piece does not start with the slide title")
	}
	if !strings.Contains(pieces[0].content, "chart: revenue by region") {
		t.Errorf("OCR text missing from the piece")
	}
}

func TestSlideChunker_FitsInBudget(t *testing.T) {
	chunker := newSlideChunker(200, types.SlideStrategySplitIfOverBudget)

	slide := &SlideContent{
		Title: "Agenda",
		Body:  "Introductions. Roadmap. Questions.",
	}

	pieces := chunker.ChunkSlide(slide)

	if len(pieces) != 1 {
		t.Fatalf("Expected a single piece, got %d", len(pieces))
	}
	if pieces[0].content != "Agenda\n\nIntroductions. Roadmap. Questions." {
		t.Errorf("Unexpected serialization: %q", pieces[0].content)
	}
	if pieces[0].oversized {
		t.Errorf("Piece should not be oversized")
	}
}

func TestSlideChunker_SplitOverBudget(t *testing.T) {
	// 超预算时正文分割，标题和 OCR 作为前缀绑定到每个结果块
	chunker := newSlideChunker(100, types.SlideStrategySplitIfOverBudget)

	slide := &SlideContent{
		Title:    "Findings",
		Body:     strings.Repeat("The metric improved over the baseline. ", 10),
		OCRTexts: []string{"fig 3"},
	}

	pieces := chunker.ChunkSlide(slide)

	if len(pieces) < 2 {
		t.Fatalf("Expected multiple pieces, got %d", len(pieces))
	}

	prefix := "Findings\n\nfig 3\n\n"
	for i, piece := range pieces {
		if !strings.HasPrefix(piece.content, prefix) {
			t.Errorf("Piece %d does not carry the title and OCR prefix: %q", i, piece.content)
		}
		if size := len([]rune(piece.content)); size > 100 {
			t.Errorf("Piece %d exceeds budget: %d chars", i, size)
		}
		if piece.oversized {
			t.Errorf("Piece %d unexpectedly oversized", i)
		}
	}

	// 去掉前缀后的正文拼接应还原原始正文
	var bodies []string
	for _, piece := range pieces {
		bodies = append(bodies, strings.TrimPrefix(piece.content, prefix))
	}
	if strings.Join(bodies, "") != slide.Body {
		t.Errorf("Concatenated bodies do not reconstruct the slide body")
	}
}

func TestSlideChunker_BodyOnly(t *testing.T) {
	// 无标题无 OCR：正文直接分割，不加前缀
	chunker := newSlideChunker(50, types.SlideStrategySplitIfOverBudget)

	body := strings.Repeat("plain sentence here. ", 10)
	pieces := chunker.ChunkSlide(&SlideContent{Body: body})

	if len(pieces) < 2 {
		t.Fatalf("Expected multiple pieces, got %d", len(pieces))
	}

	var parts []string
	for _, piece := range pieces {
		parts = append(parts, piece.content)
	}
	if strings.Join(parts, "") != body {
		t.Errorf("Concatenated pieces do not reconstruct the body")
	}
}
