package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hannanlabs/socrates/internal/middleware"
	chatsvc "github.com/hannanlabs/socrates/internal/service/chat"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *chatsvc.Service
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *chatsvc.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateChat 创建会话
// @Summary      创建会话
// @Tags         聊天
// @Accept       json
// @Produce      json
// @Router       /chats [post]
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	chat, err := h.svc.CreateChat(c.Request.Context(), userID, req.Title)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, chat)
}

// ListChats 列出会话
// @Summary      列出会话
// @Tags         聊天
// @Produce      json
// @Router       /chats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	chats, err := h.svc.ListChats(c.Request.Context(), userID, offset, limit)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, chats)
}

// GetChat 获取会话
// @Summary      获取会话
// @Tags         聊天
// @Produce      json
// @Param        id path string true "会话ID"
// @Router       /chats/{id} [get]
func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, err := h.svc.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "chat not found")
		return
	}
	Success(c, chat)
}

// AddMessage 追加转写消息
// @Summary      追加转写消息
// @Tags         聊天
// @Accept       json
// @Produce      json
// @Param        id path string true "会话ID"
// @Router       /chats/{id}/messages [post]
func (h *ChatHandler) AddMessage(c *gin.Context) {
	var req struct {
		Role    string `json:"role" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "role and content are required")
		return
	}

	msg, err := h.svc.AddMessage(c.Request.Context(), c.Param("id"), req.Role, req.Content)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, msg)
}

// GetMessages 获取会话消息
// @Summary      获取会话消息
// @Tags         聊天
// @Produce      json
// @Param        id path string true "会话ID"
// @Router       /chats/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.svc.GetMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, messages)
}

// UpdateTitle 更新会话标题
// @Summary      更新会话标题
// @Tags         聊天
// @Accept       json
// @Produce      json
// @Param        id path string true "会话ID"
// @Router       /chats/{id}/title [patch]
func (h *ChatHandler) UpdateTitle(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "title is required")
		return
	}

	if err := h.svc.UpdateTitle(c.Request.Context(), c.Param("id"), req.Title); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"message": "title updated"})
}

// ArchiveChat 归档会话
// @Summary      归档会话
// @Tags         聊天
// @Produce      json
// @Param        id path string true "会话ID"
// @Router       /chats/{id}/archive [post]
func (h *ChatHandler) ArchiveChat(c *gin.Context) {
	if err := h.svc.Archive(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"message": "chat archived"})
}
