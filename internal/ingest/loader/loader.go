package loader

import (
	"context"
	"io"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// Loader 文档加载器接口。将原始文件解析为带坐标的类型化内容块。
type Loader interface {
	// Load 加载文档内容，产出有序内容块（DocumentID 由流水线填充）
	Load(ctx context.Context, reader io.Reader) (*ParsedDocument, error)

	// SupportedTypes 返回支持的文件类型
	SupportedTypes() []types.FileType
}

// ParsedDocument 加载后的文档
type ParsedDocument struct {
	Blocks   []models.ContentBlock  // 按阅读顺序排列的内容块
	Metadata map[string]interface{} // 文档元数据
}
