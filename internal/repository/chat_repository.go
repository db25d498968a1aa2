package repository

import (
	"time"

	"github.com/hannanlabs/socrates/internal/model"
	"gorm.io/gorm"
)

// ChatRepository 聊天数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建聊天仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateChat 创建会话
func (r *ChatRepository) CreateChat(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

// GetChatByID 获取会话
func (r *ChatRepository) GetChatByID(id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats 列出用户未归档的会话，按最近活跃排序
func (r *ChatRepository) ListChats(userID string, offset, limit int) ([]*model.Chat, error) {
	var chats []*model.Chat
	err := r.db.Where("user_id = ? AND is_archived = ?", userID, false).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&chats).Error
	return chats, err
}

// UpdateTitle 更新会话标题
func (r *ChatRepository) UpdateTitle(id, title string) error {
	return r.db.Model(&model.Chat{}).Where("id = ?", id).Update("title", title).Error
}

// Archive 归档会话
func (r *ChatRepository) Archive(id string) error {
	return r.db.Model(&model.Chat{}).Where("id = ?", id).Update("is_archived", true).Error
}

// Touch 刷新会话的活跃时间
func (r *ChatRepository) Touch(id string) error {
	return r.db.Model(&model.Chat{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}

// CreateMessage 创建消息
func (r *ChatRepository) CreateMessage(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// GetMessagesByChatID 获取会话消息，按时间正序
func (r *ChatRepository) GetMessagesByChatID(chatID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// GetRecentMessages 获取会话最近的 N 条消息
func (r *ChatRepository) GetRecentMessages(chatID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
