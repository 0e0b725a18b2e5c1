package chunker

import (
	"fmt"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
	"github.com/pkoukk/tiktoken-go"
)

// Sizer 分块大小度量
type Sizer interface {
	// Size 返回文本在该度量下的大小
	Size(text string) int

	// Tail 返回文本末尾 n 个度量单位对应的原文
	Tail(text string, n int) string
}

// NewSizer 根据度量方式创建 Sizer
func NewSizer(metric types.SizeMetric, encoding string) (Sizer, error) {
	switch metric {
	case types.SizeMetricToken:
		if encoding == "" {
			encoding = "cl100k_base"
		}
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
		return &tokenSizer{encoding: enc}, nil

	case types.SizeMetricChar:
		return &charSizer{}, nil

	default:
		return nil, fmt.Errorf("unsupported size metric: %s", metric)
	}
}

// tokenSizer 基于 tiktoken 的 token 度量
type tokenSizer struct {
	encoding *tiktoken.Tiktoken
}

func (s *tokenSizer) Size(text string) int {
	if text == "" {
		return 0
	}
	return len(s.encoding.Encode(text, nil, nil))
}

func (s *tokenSizer) Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}

	tokens := s.encoding.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}

	// 取最后 n 个 tokens 解码回文本
	return s.encoding.Decode(tokens[len(tokens)-n:])
}

// charSizer 基于 rune 数量的字符度量
type charSizer struct{}

func (s *charSizer) Size(text string) int {
	count := 0
	for range text {
		count++
	}
	return count
}

func (s *charSizer) Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
