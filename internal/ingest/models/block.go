package models

import (
	"sort"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// TableData 表格结构化数据
type TableData struct {
	Header []string   // 表头行（可选）
	Rows   [][]string // 数据行，行内单元格有序
}

// HasHeader 检查表格是否带表头
func (t *TableData) HasHeader() bool {
	return len(t.Header) > 0
}

// ImageData 图片结构化数据
type ImageData struct {
	BoundingBox     [4]float64 // x, y, w, h
	EmbeddingHandle string     // 图像向量句柄，由上游多模态服务产出
}

// ContentBlock 上游解析器产出的内容单元。
// 解析器产出后不可变，分块器只读借用。
type ContentBlock struct {
	Kind        types.BlockKind
	Text        string // 原始或 OCR 文本，纯图片块可能为空
	Table       *TableData
	Image       *ImageData
	DocumentID  string
	Page        int      // 页码或幻灯片编号（从 1 开始）
	Section     []string // 包围该块的标题路径
	Permissions []string // 访问标签集合

	// OCRTexts 幻灯片内嵌图片的 OCR 文本（仅 slide-section 块）
	OCRTexts []string
}

// Validate 校验内容块必填字段
func (b *ContentBlock) Validate() error {
	if !b.Kind.Valid() {
		return ErrInvalidBlockKind
	}

	if b.DocumentID == "" {
		return ErrInvalidDocumentID
	}

	switch b.Kind {
	case types.BlockKindTable:
		if b.Table == nil || len(b.Table.Rows) == 0 {
			return ErrTableWithoutRows
		}
	case types.BlockKindImage:
		if b.Image == nil && b.Text == "" {
			return ErrEmptyImageBlock
		}
	default:
		if b.Text == "" {
			return ErrEmptyContent
		}
	}

	return nil
}

// UnionPermissions 合并多个权限集合，去重并排序
func UnionPermissions(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, tag := range set {
			seen[tag] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	union := make([]string, 0, len(seen))
	for tag := range seen {
		union = append(union, tag)
	}
	sort.Strings(union)
	return union
}
