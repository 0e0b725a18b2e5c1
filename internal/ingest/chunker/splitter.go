package chunker

import (
	"strings"
)

// RecursiveSplitter 递归文本分割器。按 SplitPriority 的分隔符依次尝试，
// 仅对超预算的片段用下一级分隔符继续分割，字符切分是保证终止的终极回退。
type RecursiveSplitter struct {
	sizer      Sizer
	budget     int
	overlap    int
	separators []string
}

// NewRecursiveSplitter 创建递归分割器
func NewRecursiveSplitter(sizer Sizer, budget, overlap int, separators []string) *RecursiveSplitter {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	return &RecursiveSplitter{
		sizer:      sizer,
		budget:     budget,
		overlap:    overlap,
		separators: separators,
	}
}

// Split 将文本分割为若干片段，每段尽量不超过预算。
// 超预算的片段只会出现在原子单元无法继续拆分的情况下。
func (s *RecursiveSplitter) Split(text string) []string {
	return s.SplitWithBudget(text, s.budget)
}

// SplitWithBudget 使用指定预算分割（幻灯片分块需要为前缀预留空间）
func (s *RecursiveSplitter) SplitWithBudget(text string, budget int) []string {
	if text == "" {
		return nil
	}

	if budget <= 0 {
		budget = 1
	}

	segments := s.splitText(text, s.separators, budget)
	pieces := s.mergeSegments(segments, budget)
	return pieces
}

// splitText 递归分割文本。保留分隔符使得片段拼接可还原原文。
func (s *RecursiveSplitter) splitText(text string, separators []string, budget int) []string {
	if len(separators) == 0 {
		return []string{text}
	}

	separator := separators[0]
	remaining := separators[1:]

	var parts []string
	if separator == "" {
		parts = s.charCut(text, budget)
	} else {
		parts = strings.SplitAfter(text, separator)
	}

	var segments []string
	for _, part := range parts {
		if part == "" {
			continue
		}

		if s.sizer.Size(part) > budget && len(remaining) > 0 {
			// 仅对超预算片段使用下一级分隔符
			segments = append(segments, s.splitText(part, remaining, budget)...)
		} else {
			segments = append(segments, part)
		}
	}

	return segments
}

// charCut 按字符硬切分。单个字符在度量下仍超预算时整体输出，
// 由调用方标记 oversized 并告警，不做重试。
func (s *RecursiveSplitter) charCut(text string, budget int) []string {
	var pieces []string
	var current strings.Builder

	for _, r := range text {
		ch := string(r)

		if current.Len() == 0 {
			current.WriteString(ch)
			continue
		}

		if s.sizer.Size(current.String()+ch) > budget {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		current.WriteString(ch)
	}

	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	return pieces
}

// mergeSegments 将分割片段贪心合并为不超预算的块，并在块之间应用重叠。
// 重叠是取前一块末尾原文的滑动窗口，不会再经过递归分割。
func (s *RecursiveSplitter) mergeSegments(segments []string, budget int) []string {
	var pieces []string
	current := ""

	for _, seg := range segments {
		// 片段本身超预算（原子单元），单独成块
		if s.sizer.Size(seg) > budget {
			if current != "" {
				pieces = append(pieces, current)
			}
			pieces = append(pieces, seg)
			current = ""
			continue
		}

		if current == "" {
			current = seg
			continue
		}

		if s.sizer.Size(current+seg) > budget {
			pieces = append(pieces, current)
			current = s.carryOverlap(current, seg, budget)
		} else {
			current += seg
		}
	}

	if current != "" {
		pieces = append(pieces, current)
	}

	return pieces
}

// carryOverlap 将前一块末尾的重叠窗口前置到下一片段。
// 下一片段接近预算时重叠窗口按剩余空间收缩，携带重叠的块永远不超预算。
func (s *RecursiveSplitter) carryOverlap(prev, seg string, budget int) string {
	if s.overlap <= 0 {
		return seg
	}

	n := s.overlap
	if room := budget - s.sizer.Size(seg); room < n {
		n = room
	}

	// token 度量下拼接可能合并 token，逐步收缩直至放得下
	for n > 0 {
		candidate := s.sizer.Tail(prev, n) + seg
		if s.sizer.Size(candidate) <= budget {
			return candidate
		}
		n--
	}

	return seg
}
