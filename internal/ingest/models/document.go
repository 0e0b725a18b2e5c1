package models

// Document 一个已解析文档：有序内容块加文档级元数据
type Document struct {
	ID string

	// Permissions 文档级默认权限，块未指定时继承
	Permissions []string

	// Blocks 按阅读顺序排列的内容块
	Blocks []ContentBlock

	// Metadata 文档元数据（来源、文件名等）
	Metadata map[string]interface{}
}

// Validate 校验文档
func (d *Document) Validate() error {
	if d.ID == "" {
		return ErrInvalidDocumentID
	}
	return nil
}
