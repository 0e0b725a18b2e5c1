package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// TextLoader 纯文本加载器。按空行切分段落，每段一个 paragraph 块。
type TextLoader struct{}

// NewTextLoader 创建纯文本加载器
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load 加载纯文本内容
func (l *TextLoader) Load(ctx context.Context, reader io.Reader) (*ParsedDocument, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read text content: %w", err)
	}

	var blocks []models.ContentBlock
	for _, para := range strings.Split(string(content), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		blocks = append(blocks, models.ContentBlock{
			Kind: types.BlockKindParagraph,
			Text: para,
			Page: 1,
		})
	}

	return &ParsedDocument{
		Blocks: blocks,
		Metadata: map[string]interface{}{
			"loader": "text",
		},
	}, nil
}

// SupportedTypes 返回支持的文件类型
func (l *TextLoader) SupportedTypes() []types.FileType {
	return []types.FileType{
		types.FileTypeTxt,
	}
}
