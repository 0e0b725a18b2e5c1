package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/lk2023060901/doc-ingest/internal/ingest/models"
)

// ScoredChunk 带相似度分数的检索结果
type ScoredChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	ChunkType  string  `json:"chunk_type"`
	Content    string  `json:"content"`
	Page       int     `json:"page"`
	Section    string  `json:"section,omitempty"`
	OrderIndex int     `json:"order_index"`
	Score      float32 `json:"score"`
}

// Filter 检索的元数据过滤条件
type Filter struct {
	DocumentID  string   // 限定文档
	Permissions []string // 访问标签，命中任一即可
	Expr        string   // 额外的原生过滤表达式
}

// EncodePermissions 将访问标签编码为定界串（",a,b,"）。
// 标签两侧保留逗号定界，like 匹配不会误命中共享前缀的标签。
func EncodePermissions(perms []string) string {
	if len(perms) == 0 {
		return ""
	}
	return "," + strings.Join(perms, ",") + ","
}

// BuildExpr 构建 Milvus 过滤表达式
func (f *Filter) BuildExpr() string {
	if f == nil {
		return ""
	}

	var conds []string

	if f.DocumentID != "" {
		conds = append(conds, fmt.Sprintf(`document_id == "%s"`, f.DocumentID))
	}

	if len(f.Permissions) > 0 {
		var perms []string
		for _, tag := range f.Permissions {
			perms = append(perms, fmt.Sprintf(`permissions like "%%,%s,%%"`, tag))
		}
		conds = append(conds, "("+strings.Join(perms, " or ")+")")
	}

	if f.Expr != "" {
		conds = append(conds, "("+f.Expr+")")
	}

	return strings.Join(conds, " and ")
}

// VectorStore 向量存储接口。持久化 (分块, 向量) 对，
// 以分块元数据作为可过滤字段，支持带过滤的近邻检索。
type VectorStore interface {
	// EnsureCollection 确保集合存在（不存在则创建并建索引）
	EnsureCollection(ctx context.Context, dimension int) error

	// UpsertChunks 写入分块及其向量，按 chunk_id 幂等
	UpsertChunks(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error

	// Search 带元数据过滤的近邻检索
	Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]*ScoredChunk, error)

	// DeleteByDocument 删除一个文档的全部分块
	DeleteByDocument(ctx context.Context, documentID string) error

	// Close 关闭底层连接
	Close(ctx context.Context) error
}
