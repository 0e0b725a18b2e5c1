package types

// BlockKind 内容块类型（由上游解析器产出）
type BlockKind string

const (
	// BlockKindParagraph 段落文本
	BlockKindParagraph BlockKind = "paragraph"
	// BlockKindHeading 标题
	BlockKindHeading BlockKind = "heading"
	// BlockKindTable 表格
	BlockKindTable BlockKind = "table"
	// BlockKindImage 图片（OCR 文本可能为空）
	BlockKindImage BlockKind = "image"
	// BlockKindSlideSection 幻灯片或标题界定的章节
	BlockKindSlideSection BlockKind = "slide-section"
)

// Valid 检查内容块类型是否有效
func (k BlockKind) Valid() bool {
	switch k {
	case BlockKindParagraph, BlockKindHeading, BlockKindTable, BlockKindImage, BlockKindSlideSection:
		return true
	}
	return false
}

// String 返回字符串表示
func (k BlockKind) String() string {
	return string(k)
}

// ChunkType 分块类型
type ChunkType string

const (
	ChunkTypeParagraph ChunkType = "paragraph"
	ChunkTypeTable     ChunkType = "table"
	ChunkTypeImage     ChunkType = "image"
	ChunkTypeMixed     ChunkType = "mixed"
)

// Valid 检查分块类型是否有效
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkTypeParagraph, ChunkTypeTable, ChunkTypeImage, ChunkTypeMixed:
		return true
	}
	return false
}

// String 返回字符串表示
func (t ChunkType) String() string {
	return string(t)
}

// TableStrategy 表格分块策略
type TableStrategy string

const (
	// TableStrategyRowGroup 按连续行组分块，每组重复表头
	TableStrategyRowGroup TableStrategy = "row-group"
	// TableStrategyWholeTableIfFits 整表不超预算时作为单块
	TableStrategyWholeTableIfFits TableStrategy = "whole-table-if-fits"
)

// Valid 检查表格策略是否有效
func (s TableStrategy) Valid() bool {
	switch s {
	case TableStrategyRowGroup, TableStrategyWholeTableIfFits:
		return true
	}
	return false
}

// String 返回字符串表示
func (s TableStrategy) String() string {
	return string(s)
}

// SlideStrategy 幻灯片/章节分块策略
type SlideStrategy string

const (
	// SlideStrategyOnePerSlide 每张幻灯片一个分块（超预算也不拆分）
	SlideStrategyOnePerSlide SlideStrategy = "one-per-slide"
	// SlideStrategySplitIfOverBudget 超预算时正文交给递归分割器
	SlideStrategySplitIfOverBudget SlideStrategy = "split-if-over-budget"
)

// Valid 检查幻灯片策略是否有效
func (s SlideStrategy) Valid() bool {
	switch s {
	case SlideStrategyOnePerSlide, SlideStrategySplitIfOverBudget:
		return true
	}
	return false
}

// String 返回字符串表示
func (s SlideStrategy) String() string {
	return string(s)
}

// SizeMetric 分块大小度量方式
type SizeMetric string

const (
	// SizeMetricToken 基于 tiktoken 的 token 数量
	SizeMetricToken SizeMetric = "token"
	// SizeMetricChar 基于字符（rune）数量
	SizeMetricChar SizeMetric = "char"
)

// Valid 检查度量方式是否有效
func (m SizeMetric) Valid() bool {
	switch m {
	case SizeMetricToken, SizeMetricChar:
		return true
	}
	return false
}

// String 返回字符串表示
func (m SizeMetric) String() string {
	return string(m)
}

// EmbeddingProvider Embedding 提供商（仅支持 API 调用）
type EmbeddingProvider string

const (
	// EmbeddingProviderOpenAI OpenAI Embedding API
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// Valid 检查 Embedding 提供商是否有效
func (ep EmbeddingProvider) Valid() bool {
	return ep == EmbeddingProviderOpenAI
}

// String 返回字符串表示
func (ep EmbeddingProvider) String() string {
	return string(ep)
}

// FileType 文件类型
type FileType string

const (
	FileTypeTxt  FileType = "txt"
	FileTypePdf  FileType = "pdf"
	FileTypeMd   FileType = "md"
	FileTypeJson FileType = "json"
)

// Valid 检查文件类型是否有效
func (ft FileType) Valid() bool {
	switch ft {
	case FileTypeTxt, FileTypePdf, FileTypeMd, FileTypeJson:
		return true
	}
	return false
}

// String 返回字符串表示
func (ft FileType) String() string {
	return string(ft)
}
