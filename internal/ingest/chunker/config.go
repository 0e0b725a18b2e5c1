package chunker

import (
	"fmt"

	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// DefaultSeparators 默认分隔符（按优先级从高到低）
var DefaultSeparators = []string{
	"\n\n", // 段落
	"\n",   // 换行
	". ",   // 句子
	"! ",   // 感叹句
	"? ",   // 疑问句
	" ",    // 单词
	"",     // 字符（终极回退）
}

// Config 分块配置，每次流水线运行提供一次，运行期间不可变
type Config struct {
	// MaxChunkSize 每块的大小预算
	MaxChunkSize int

	// OverlapSize 相邻文本块之间的重叠大小（仅文本块）
	OverlapSize int

	// SplitPriority 分隔符列表（按优先级），空字符串表示按字符切分
	SplitPriority []string

	// TableStrategy 表格分块策略
	TableStrategy types.TableStrategy

	// SlideStrategy 幻灯片/章节分块策略
	SlideStrategy types.SlideStrategy

	// SizeMetric 大小度量方式
	SizeMetric types.SizeMetric

	// Encoding tiktoken 编码名称（仅 token 度量）
	Encoding string
}

// DefaultConfig 默认分块配置
func DefaultConfig() *Config {
	return &Config{
		MaxChunkSize:  512,
		OverlapSize:   50,
		SplitPriority: DefaultSeparators,
		TableStrategy: types.TableStrategyRowGroup,
		SlideStrategy: types.SlideStrategySplitIfOverBudget,
		SizeMetric:    types.SizeMetricToken,
		Encoding:      "cl100k_base",
	}
}

// Validate 校验配置，任何文档处理前快速失败
func (c *Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive")
	}

	if c.OverlapSize < 0 {
		return fmt.Errorf("chunk overlap cannot be negative")
	}

	if c.OverlapSize >= c.MaxChunkSize {
		return fmt.Errorf("chunk overlap must be less than max chunk size")
	}

	if len(c.SplitPriority) == 0 {
		return fmt.Errorf("split priority cannot be empty")
	}

	if !c.TableStrategy.Valid() {
		return fmt.Errorf("unsupported table strategy: %s", c.TableStrategy)
	}

	if !c.SlideStrategy.Valid() {
		return fmt.Errorf("unsupported slide strategy: %s", c.SlideStrategy)
	}

	if !c.SizeMetric.Valid() {
		return fmt.Errorf("unsupported size metric: %s", c.SizeMetric)
	}

	return nil
}
