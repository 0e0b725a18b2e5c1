package source

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// Item 一个待摄入的文件
type Item struct {
	// Key 在来源内的唯一标识（路径或对象名）
	Key string

	// Name 文件名（不含目录）
	Name string

	// Type 按扩展名识别的文件类型
	Type types.FileType

	// Size 字节数，未知时为 0
	Size int64
}

// Source 文件来源接口。枚举待摄入文件并按需打开内容。
type Source interface {
	// List 枚举来源内所有可识别类型的文件
	List(ctx context.Context) ([]Item, error)

	// Open 打开一个文件的内容，调用方负责关闭
	Open(ctx context.Context, item Item) (io.ReadCloser, error)
}

// DetectFileType 按扩展名识别文件类型，不识别返回 false
func DetectFileType(name string) (types.FileType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return types.FileTypeTxt, true
	case ".md", ".markdown":
		return types.FileTypeMd, true
	case ".pdf":
		return types.FileTypePdf, true
	case ".json":
		return types.FileTypeJson, true
	default:
		return "", false
	}
}
