package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hannanlabs/socrates/internal/middleware"
	"github.com/hannanlabs/socrates/internal/service/attachment"
)

// Attacher 文档挂载编排器契约
type Attacher interface {
	Attach(ctx context.Context, req *attachment.Request) (*attachment.Result, error)
}

// AttachmentHandler 文档挂载处理器
type AttachmentHandler struct {
	svc Attacher
}

// NewAttachmentHandler 创建文档挂载处理器
func NewAttachmentHandler(svc Attacher) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// AttachDocument 上传文档并同步到代理知识库
// @Summary      挂载文档
// @Description  上传文件、写入知识库并更新代理配置，失败时逆序补偿
// @Tags         代理知识库
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData file   true  "文件"
// @Param        api_key  formData string true  "知识库服务 API Key"
// @Param        agent_id formData string true  "代理ID"
// @Param        chat_id  formData string false "会话ID"
// @Success      200 {object} map[string]interface{} "挂载成功"
// @Failure      400 {object} map[string]interface{} "请求不合法"
// @Router       /agent/documents [post]
func (h *AttachmentHandler) AttachDocument(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}

	req := &attachment.Request{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
		AgentID:     c.PostForm("agent_id"),
		APIKey:      c.PostForm("api_key"),
		OwnerID:     userID,
	}
	if chatID := c.PostForm("chat_id"); chatID != "" {
		req.ChatID = &chatID
	}

	result, err := h.svc.Attach(c.Request.Context(), req)
	if err != nil {
		c.JSON(attachment.HTTPStatus(err), gin.H{"error": attachment.UserMessage(err)})
		return
	}

	resp := gin.H{
		"message":       "Document processed, agent knowledge base updated successfully.",
		"newDocumentId": result.KBDocumentID,
		"documentId":    result.DocumentID,
		"publicUrl":     result.PublicURL,
	}
	if result.PageCount != nil {
		resp["pageCount"] = *result.PageCount
	}
	if len(result.Warnings) > 0 {
		resp["warnings"] = result.Warnings
	}
	c.JSON(http.StatusOK, resp)
}
