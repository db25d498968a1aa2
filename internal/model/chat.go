package model

import "time"

// Chat 聊天会话，一次语音对话对应一条记录
type Chat struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserID     string    `json:"user_id" gorm:"index;size:36"`
	Title      string    `json:"title" gorm:"size:255"`
	IsArchived bool      `json:"is_archived" gorm:"index;default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime;index"`
	Messages   []Message `json:"messages,omitempty" gorm:"foreignKey:ChatID"`
}

// Message 聊天消息，一条语音转写内容
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ChatID    string    `json:"chat_id" gorm:"index;size:36"`
	Role      string    `json:"role" gorm:"size:20;index"` // user, assistant
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chats"
}

func (Message) TableName() string {
	return "messages"
}
