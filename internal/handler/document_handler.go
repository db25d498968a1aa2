package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hannanlabs/socrates/internal/middleware"
	"github.com/hannanlabs/socrates/internal/repository"
	"github.com/hannanlabs/socrates/internal/service/storage"
)

// DocumentHandler 文档读取处理器
type DocumentHandler struct {
	repo    *repository.DocumentRepository
	storage storage.Storage
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(repo *repository.DocumentRepository, st storage.Storage) *DocumentHandler {
	return &DocumentHandler{repo: repo, storage: st}
}

// GetDocument 获取文档元数据
// @Summary      获取文档元数据
// @Tags         文档
// @Produce      json
// @Param        id path string true "文档ID"
// @Router       /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		NotFound(c, "document not found")
		return
	}
	Success(c, doc)
}

// GetDocumentContent 获取文档内容
// @Summary      获取文档内容
// @Tags         文档
// @Produce      octet-stream
// @Param        id path string true "文档ID"
// @Router       /documents/{id}/content [get]
func (h *DocumentHandler) GetDocumentContent(c *gin.Context) {
	doc, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		NotFound(c, "document not found")
		return
	}

	reader, err := h.storage.Get(c.Request.Context(), doc.StorageKey)
	if err != nil {
		Error(c, err)
		return
	}
	defer reader.Close()

	// 设置响应头
	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Disposition", "inline; filename="+doc.FileName)
	c.Header("Content-Length", strconv.FormatInt(doc.FileSize, 10))

	// 流式传输文件
	if _, err := io.Copy(c.Writer, reader); err != nil {
		Error(c, err)
		return
	}
}

// GetDocumentURL 获取文档访问URL
// @Summary      获取文档URL
// @Tags         文档
// @Produce      json
// @Param        id path string true "文档ID"
// @Router       /documents/{id}/url [get]
func (h *DocumentHandler) GetDocumentURL(c *gin.Context) {
	doc, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		NotFound(c, "document not found")
		return
	}

	url := h.storage.GetURL(doc.StorageKey)
	if url == "" {
		NotFound(c, "no public URL available for this document")
		return
	}
	Success(c, gin.H{"url": url})
}

// ListChatDocuments 列出会话挂载的文档
// @Summary      列出会话文档
// @Tags         文档
// @Produce      json
// @Param        id path string true "会话ID"
// @Router       /chats/{id}/documents [get]
func (h *DocumentHandler) ListChatDocuments(c *gin.Context) {
	docs, err := h.repo.ListByChat(c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, docs)
}

// ListMyDocuments 列出当前用户的全部文档
// @Summary      列出用户文档
// @Tags         文档
// @Produce      json
// @Router       /documents [get]
func (h *DocumentHandler) ListMyDocuments(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "authentication required")
		return
	}

	docs, err := h.repo.ListByOwner(userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, docs)
}
