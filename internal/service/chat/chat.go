// Package chat 提供聊天会话与转写消息的持久化。
// 语音流本身由浏览器与代理服务直连，这里只落库双方的文本转写。
package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/hannanlabs/socrates/internal/model"
)

// 会话标题的最大展示长度，超出部分截断
const maxTitleLength = 50

// Repository 聊天仓库契约
type Repository interface {
	CreateChat(chat *model.Chat) error
	GetChatByID(id string) (*model.Chat, error)
	ListChats(userID string, offset, limit int) ([]*model.Chat, error)
	UpdateTitle(id, title string) error
	Archive(id string) error
	Touch(id string) error
	CreateMessage(msg *model.Message) error
	GetMessagesByChatID(chatID string) ([]*model.Message, error)
}

// Service 聊天服务
type Service struct {
	repo Repository
}

// NewService 创建聊天服务
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateChat 创建会话，标题取首条内容并截断
func (s *Service) CreateChat(ctx context.Context, userID, initialTitle string) (*model.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	chat := &model.Chat{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  truncateTitle(initialTitle),
	}
	if err := s.repo.CreateChat(chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// GetChat 获取会话
func (s *Service) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	return s.repo.GetChatByID(id)
}

// ListChats 列出用户未归档的会话，按最近活跃排序
func (s *Service) ListChats(ctx context.Context, userID string, offset, limit int) ([]*model.Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListChats(userID, offset, limit)
}

// AddMessage 追加一条转写消息并刷新会话活跃时间
func (s *Service) AddMessage(ctx context.Context, chatID, role, content string) (*model.Message, error) {
	if role != "user" && role != "assistant" {
		return nil, fmt.Errorf("unsupported message role: %s", role)
	}
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}

	msg := &model.Message{
		ID:      uuid.New().String(),
		ChatID:  chatID,
		Role:    role,
		Content: content,
	}
	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	// 活跃时间刷新失败不影响消息写入
	if err := s.repo.Touch(chatID); err != nil {
		log.Printf("failed to touch chat %s: %v", chatID, err)
	}
	return msg, nil
}

// GetMessages 获取会话消息，按时间正序
func (s *Service) GetMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	return s.repo.GetMessagesByChatID(chatID)
}

// UpdateTitle 更新会话标题
func (s *Service) UpdateTitle(ctx context.Context, chatID, title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	return s.repo.UpdateTitle(chatID, truncateTitle(title))
}

// Archive 归档会话
func (s *Service) Archive(ctx context.Context, chatID string) error {
	return s.repo.Archive(chatID)
}

// truncateTitle 截断过长的标题
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength]) + "..."
}
