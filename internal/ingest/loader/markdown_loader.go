package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/russross/blackfriday/v2"
)

// MarkdownLoader Markdown 加载器。通过 blackfriday AST 产出
// 带标题路径的 heading/paragraph/table 内容块。
type MarkdownLoader struct{}

// NewMarkdownLoader 创建 Markdown 加载器
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// sectionEntry 标题栈条目
type sectionEntry struct {
	level int
	label string
}

// Load 加载 Markdown 内容
func (l *MarkdownLoader) Load(ctx context.Context, reader io.Reader) (*ParsedDocument, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown content: %w", err)
	}

	md := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions))
	ast := md.Parse(content)

	var blocks []models.ContentBlock
	var stack []sectionEntry

	for node := ast.FirstChild; node != nil; node = node.Next {
		switch node.Type {
		case blackfriday.Heading:
			label := collectText(node)
			if label == "" {
				continue
			}

			// 收缩标题栈到父级，标题块的 section 是其所有祖先标题
			stack = popToLevel(stack, node.HeadingData.Level)
			blocks = append(blocks, models.ContentBlock{
				Kind:    types.BlockKindHeading,
				Text:    label,
				Page:    1,
				Section: sectionLabels(stack),
			})
			stack = append(stack, sectionEntry{level: node.HeadingData.Level, label: label})

		case blackfriday.Table:
			table := parseTable(node)
			if table == nil {
				continue
			}
			blocks = append(blocks, models.ContentBlock{
				Kind:    types.BlockKindTable,
				Table:   table,
				Page:    1,
				Section: sectionLabels(stack),
			})

		default:
			text := collectText(node)
			if text == "" {
				continue
			}
			blocks = append(blocks, models.ContentBlock{
				Kind:    types.BlockKindParagraph,
				Text:    text,
				Page:    1,
				Section: sectionLabels(stack),
			})
		}
	}

	return &ParsedDocument{
		Blocks: blocks,
		Metadata: map[string]interface{}{
			"loader": "markdown",
		},
	}, nil
}

// popToLevel 收缩标题栈，保留比 level 更高层级的条目
func popToLevel(stack []sectionEntry, level int) []sectionEntry {
	for len(stack) > 0 && stack[len(stack)-1].level >= level {
		stack = stack[:len(stack)-1]
	}
	return stack
}

// sectionLabels 取标题栈的标签序列
func sectionLabels(stack []sectionEntry) []string {
	if len(stack) == 0 {
		return nil
	}
	labels := make([]string, len(stack))
	for i, entry := range stack {
		labels[i] = entry.label
	}
	return labels
}

// collectText 收集节点子树的纯文本
func collectText(node *blackfriday.Node) string {
	var sb strings.Builder

	node.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			if n.Type == blackfriday.Item && sb.Len() > 0 {
				sb.WriteString("\n")
			}
			return blackfriday.GoToNext
		}

		switch n.Type {
		case blackfriday.Text, blackfriday.Code:
			sb.Write(n.Literal)
		case blackfriday.CodeBlock:
			sb.Write(n.Literal)
		case blackfriday.Softbreak:
			sb.WriteString(" ")
		case blackfriday.Hardbreak:
			sb.WriteString("\n")
		}
		return blackfriday.GoToNext
	})

	return strings.TrimSpace(sb.String())
}

// parseTable 将表格节点转换为结构化表格数据
func parseTable(node *blackfriday.Node) *models.TableData {
	table := &models.TableData{}

	for section := node.FirstChild; section != nil; section = section.Next {
		isHead := section.Type == blackfriday.TableHead

		for row := section.FirstChild; row != nil; row = row.Next {
			if row.Type != blackfriday.TableRow {
				continue
			}

			var cells []string
			for cell := row.FirstChild; cell != nil; cell = cell.Next {
				cells = append(cells, collectText(cell))
			}

			if isHead && table.Header == nil {
				table.Header = cells
			} else {
				table.Rows = append(table.Rows, cells)
			}
		}
	}

	if len(table.Rows) == 0 && len(table.Header) == 0 {
		return nil
	}

	// 只有表头行的表格当作单行数据
	if len(table.Rows) == 0 {
		table.Rows = [][]string{table.Header}
		table.Header = nil
	}

	return table
}

// SupportedTypes 返回支持的文件类型
func (l *MarkdownLoader) SupportedTypes() []types.FileType {
	return []types.FileType{
		types.FileTypeMd,
	}
}
