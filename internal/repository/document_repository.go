package repository

import (
	"github.com/hannanlabs/socrates/internal/model"
	"gorm.io/gorm"
)

// DocumentRepository 文档元数据仓库
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create 创建文档记录
func (r *DocumentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// GetByID 根据ID获取文档
func (r *DocumentRepository) GetByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByChat 列出会话挂载的文档
func (r *DocumentRepository) ListByChat(chatID string) ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Where("chat_id = ?", chatID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// ListByOwner 列出用户的全部文档
func (r *DocumentRepository) ListByOwner(ownerID string) ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// Delete 删除文档记录，仅用于同一次挂载失败时的补偿清理
func (r *DocumentRepository) Delete(id string) error {
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}
