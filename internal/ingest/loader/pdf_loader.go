package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// PDFLoader PDF 加载器（使用 go-fitz/MuPDF）。
// 每页产出一个 slide-section 块，页码即坐标。
type PDFLoader struct{}

// NewPDFLoader 创建 PDF 加载器
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load 加载 PDF 内容
func (l *PDFLoader) Load(ctx context.Context, reader io.Reader) (*ParsedDocument, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var blocks []models.ContentBlock
	numPages := doc.NumPage()

	for i := 0; i < numPages; i++ {
		text, err := doc.Text(i)
		if err != nil {
			// 跳过无法提取的页面
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		blocks = append(blocks, models.ContentBlock{
			Kind: types.BlockKindSlideSection,
			Text: text,
			Page: i + 1,
		})
	}

	return &ParsedDocument{
		Blocks: blocks,
		Metadata: map[string]interface{}{
			"loader":     "pdf",
			"page_count": numPages,
		},
	}, nil
}

// SupportedTypes 返回支持的文件类型
func (l *PDFLoader) SupportedTypes() []types.FileType {
	return []types.FileType{
		types.FileTypePdf,
	}
}
