package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/doc-ingest/internal/ingest/types"
)

// Chunk 分块器的输出单元。创建后不可变，交给 Embedder 处理。
type Chunk struct {
	ID         uuid.UUID       `json:"id"`
	DocumentID string          `json:"document_id"`
	Type       types.ChunkType `json:"type"`

	// 待向量化的序列化内容
	Content string `json:"content"`

	// 配置度量方式下的近似大小
	TokenEstimate int `json:"token_estimate"`

	// 溯源信息
	Page        int      `json:"page"`
	Section     string   `json:"section,omitempty"`
	OrderIndex  int      `json:"order_index"`
	Permissions []string `json:"permissions,omitempty"`

	// 原子单元无法继续拆分时超出预算
	Oversized bool `json:"oversized,omitempty"`

	// ImageHandle 图像向量句柄（仅 image 块），Embedder 据此取图像向量
	ImageHandle string `json:"image_handle,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewChunk 创建分块，生成唯一 ID
func NewChunk(documentID string, chunkType types.ChunkType, content string) *Chunk {
	return &Chunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		Type:       chunkType,
		Content:    content,
		CreatedAt:  time.Now(),
	}
}

// Validate 校验分块
func (c *Chunk) Validate() error {
	if c.ID == uuid.Nil {
		return ErrInvalidChunkID
	}

	if c.DocumentID == "" {
		return ErrInvalidDocumentID
	}

	if !c.Type.Valid() {
		return ErrInvalidChunkType
	}

	if c.Content == "" {
		return ErrEmptyContent
	}

	if c.OrderIndex < 0 {
		return ErrInvalidOrderIndex
	}

	return nil
}
