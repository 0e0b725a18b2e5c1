package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/tidwall/gjson"
)

// JSONLoader JSON 文件加载器（使用 gjson 展开）。
// 顶层元素逐个展开为可读文本，每个元素一个 paragraph 块。
type JSONLoader struct{}

// NewJSONLoader 创建 JSON 加载器
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

// Load 加载 JSON 内容
func (l *JSONLoader) Load(ctx context.Context, reader io.Reader) (*ParsedDocument, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read json content: %w", err)
	}

	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("invalid JSON format")
	}

	result := gjson.ParseBytes(content)

	var blocks []models.ContentBlock
	appendBlock := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		blocks = append(blocks, models.ContentBlock{
			Kind: types.BlockKindParagraph,
			Text: text,
			Page: 1,
		})
	}

	if result.IsArray() {
		for i, item := range result.Array() {
			appendBlock(formatValue(fmt.Sprintf("Item %d", i), item, 0))
		}
	} else if result.IsObject() {
		result.ForEach(func(key, value gjson.Result) bool {
			appendBlock(formatValue(key.String(), value, 0))
			return true
		})
	} else {
		appendBlock(result.String())
	}

	return &ParsedDocument{
		Blocks: blocks,
		Metadata: map[string]interface{}{
			"loader":        "json",
			"original_size": len(content),
		},
	}, nil
}

// formatValue 递归展开 JSON 值为可读文本
func formatValue(key string, value gjson.Result, depth int) string {
	var sb strings.Builder
	indent := strings.Repeat("  ", depth)

	switch value.Type {
	case gjson.String:
		sb.WriteString(fmt.Sprintf("%s%s: %s\n", indent, key, value.String()))
	case gjson.Number:
		sb.WriteString(fmt.Sprintf("%s%s: %v\n", indent, key, value.Num))
	case gjson.True, gjson.False:
		sb.WriteString(fmt.Sprintf("%s%s: %v\n", indent, key, value.Bool()))
	case gjson.JSON:
		if value.IsArray() {
			sb.WriteString(fmt.Sprintf("%s%s:\n", indent, key))
			for i, item := range value.Array() {
				sb.WriteString(formatValue(fmt.Sprintf("[%d]", i), item, depth+1))
			}
		} else if value.IsObject() {
			sb.WriteString(fmt.Sprintf("%s%s:\n", indent, key))
			value.ForEach(func(k, v gjson.Result) bool {
				sb.WriteString(formatValue(k.String(), v, depth+1))
				return true
			})
		}
	}

	return sb.String()
}

// SupportedTypes 返回支持的文件类型
func (l *JSONLoader) SupportedTypes() []types.FileType {
	return []types.FileType{
		types.FileTypeJson,
	}
}
