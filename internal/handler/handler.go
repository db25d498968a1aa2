package handler

import (
	"github.com/hannanlabs/socrates/internal/repository"
	chatsvc "github.com/hannanlabs/socrates/internal/service/chat"
	settingssvc "github.com/hannanlabs/socrates/internal/service/settings"
	"github.com/hannanlabs/socrates/internal/service/storage"
)

// Handlers 处理器集合
type Handlers struct {
	Attachment *AttachmentHandler
	Chat       *ChatHandler
	Document   *DocumentHandler
	Settings   *SettingsHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(
	attacher Attacher,
	chatSvc *chatsvc.Service,
	settingsSvc *settingssvc.Service,
	repos *repository.Repositories,
	st storage.Storage,
) *Handlers {
	return &Handlers{
		Attachment: NewAttachmentHandler(attacher),
		Chat:       NewChatHandler(chatSvc),
		Document:   NewDocumentHandler(repos.Document, st),
		Settings:   NewSettingsHandler(settingsSvc),
	}
}
