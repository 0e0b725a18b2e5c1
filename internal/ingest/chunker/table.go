package chunker

import (
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// tablePiece 表格分块的中间结果
type tablePiece struct {
	content   string
	rowCount  int
	oversized bool
}

// TableChunker 表格分块器。行是原子单元，从不跨行拆分；
// 每个行组都重复表头，保证块可独立解读。
type TableChunker struct {
	sizer    Sizer
	budget   int
	strategy types.TableStrategy
}

// NewTableChunker 创建表格分块器
func NewTableChunker(sizer Sizer, budget int, strategy types.TableStrategy) *TableChunker {
	return &TableChunker{
		sizer:    sizer,
		budget:   budget,
		strategy: strategy,
	}
}

// ChunkTable 将表格数据转换为一个或多个分块内容
func (t *TableChunker) ChunkTable(table *models.TableData) []tablePiece {
	header := ""
	if table.HasHeader() {
		header = serializeRow(table.Header)
	}

	// 整表序列化不超预算时作为单块
	whole := t.serializeGroup(header, table.Rows)
	if t.strategy == types.TableStrategyWholeTableIfFits && t.sizer.Size(whole) <= t.budget {
		return []tablePiece{{content: whole, rowCount: len(table.Rows)}}
	}

	var pieces []tablePiece
	var group [][]string

	for _, row := range table.Rows {
		// 单行加表头仍超预算：单独成块并标记 oversized，不做行内拆分
		single := t.serializeGroup(header, [][]string{row})
		if t.sizer.Size(single) > t.budget {
			if len(group) > 0 {
				pieces = append(pieces, t.flushGroup(header, group))
				group = nil
			}
			pieces = append(pieces, tablePiece{content: single, rowCount: 1, oversized: true})
			continue
		}

		candidate := t.serializeGroup(header, append(group, row))
		if len(group) > 0 && t.sizer.Size(candidate) > t.budget {
			pieces = append(pieces, t.flushGroup(header, group))
			group = [][]string{row}
		} else {
			group = append(group, row)
		}
	}

	if len(group) > 0 {
		pieces = append(pieces, t.flushGroup(header, group))
	}

	return pieces
}

func (t *TableChunker) flushGroup(header string, group [][]string) tablePiece {
	content := t.serializeGroup(header, group)
	return tablePiece{
		content:   content,
		rowCount:  len(group),
		oversized: t.sizer.Size(content) > t.budget,
	}
}

// serializeGroup 序列化表头加行组。表头重复出现在每个行组中。
func (t *TableChunker) serializeGroup(header string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	if header != "" {
		lines = append(lines, header)
	}
	for _, row := range rows {
		lines = append(lines, serializeRow(row))
	}
	return strings.Join(lines, "\n")
}

// serializeRow 序列化单行，单元格边界是原子的
func serializeRow(cells []string) string {
	return strings.Join(cells, " | ")
}
