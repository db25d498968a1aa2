package model

import (
	"time"
)

// Document 文档元数据，对应一次成功挂载到知识库的上传
// 仅在 Blob 与知识库文档都创建成功之后写入，不做原地更新
type Document struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	OwnerID      string    `json:"owner_id" gorm:"index;size:36"`
	ChatID       *string   `json:"chat_id,omitempty" gorm:"index;size:36"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	ContentType  string    `json:"content_type"`
	StorageKey   string    `json:"storage_key" gorm:"uniqueIndex;size:512"` // 存储路径，每次上传唯一
	KBDocumentID string    `json:"kb_document_id" gorm:"index;size:64"`     // 知识库服务分配的文档ID
	PageCount    *int      `json:"page_count,omitempty"`                    // 仅 PDF 有值
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}
