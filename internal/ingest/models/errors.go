package models

import "errors"

// ContentBlock 错误
var (
	ErrInvalidBlockKind  = errors.New("invalid content block kind")
	ErrInvalidDocumentID = errors.New("invalid document id")
	ErrTableWithoutRows  = errors.New("table block has no rows")
	ErrEmptyImageBlock   = errors.New("image block has neither embedding handle nor ocr text")
	ErrEmptyContent      = errors.New("empty content")
)

// Chunk 错误
var (
	ErrInvalidChunkID    = errors.New("invalid chunk id")
	ErrInvalidChunkType  = errors.New("invalid chunk type")
	ErrInvalidOrderIndex = errors.New("invalid order index")
)
