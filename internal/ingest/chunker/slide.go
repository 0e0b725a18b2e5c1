package chunker

import (
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// slidePiece 幻灯片分块的中间结果
type slidePiece struct {
	content   string
	oversized bool
}

// SlideContent 一个结构单元（幻灯片或标题界定的章节）的内容
type SlideContent struct {
	Title    string
	Body     string
	OCRTexts []string // 内嵌图片的 OCR 文本
}

// SlideChunker 幻灯片/章节分块器。默认每个结构单元一个分块；
// 超预算时正文交给递归分割器，标题和 OCR 片段作为前缀绑定到每个结果块上。
type SlideChunker struct {
	sizer    Sizer
	splitter *RecursiveSplitter
	budget   int
	strategy types.SlideStrategy
}

// NewSlideChunker 创建幻灯片分块器
func NewSlideChunker(sizer Sizer, splitter *RecursiveSplitter, budget int, strategy types.SlideStrategy) *SlideChunker {
	return &SlideChunker{
		sizer:    sizer,
		splitter: splitter,
		budget:   budget,
		strategy: strategy,
	}
}

// ChunkSlide 将一个幻灯片/章节转换为一个或多个分块内容
func (s *SlideChunker) ChunkSlide(slide *SlideContent) []slidePiece {
	whole := s.serialize(slide.Title, slide.Body, slide.OCRTexts)

	if s.strategy == types.SlideStrategyOnePerSlide || s.sizer.Size(whole) <= s.budget {
		return []slidePiece{{
			content:   whole,
			oversized: s.sizer.Size(whole) > s.budget,
		}}
	}

	// 标题与 OCR 片段作为每个结果块的重复前缀，保留对原幻灯片的溯源。
	// 正文预算需要扣除前缀及其连接符
	prefix := s.serialize(slide.Title, "", slide.OCRTexts)
	bodyBudget := s.budget
	if prefix != "" {
		bodyBudget -= s.sizer.Size(prefix + "\n\n")
	}
	if bodyBudget < 1 {
		bodyBudget = 1
	}

	bodyPieces := s.splitter.SplitWithBudget(slide.Body, bodyBudget)
	if len(bodyPieces) == 0 {
		return []slidePiece{{content: prefix, oversized: s.sizer.Size(prefix) > s.budget}}
	}

	pieces := make([]slidePiece, 0, len(bodyPieces))
	for _, body := range bodyPieces {
		content := body
		if prefix != "" {
			content = prefix + "\n\n" + body
		}
		pieces = append(pieces, slidePiece{
			content:   content,
			oversized: s.sizer.Size(content) > s.budget,
		})
	}

	return pieces
}

// serialize 用明确分隔符拼接标题、正文和 OCR 文本
func (s *SlideChunker) serialize(title, body string, ocrTexts []string) string {
	parts := make([]string, 0, 2+len(ocrTexts))
	if title != "" {
		parts = append(parts, title)
	}
	if body != "" {
		parts = append(parts, body)
	}
	for _, ocr := range ocrTexts {
		if ocr != "" {
			parts = append(parts, ocr)
		}
	}
	return strings.Join(parts, "\n\n")
}
