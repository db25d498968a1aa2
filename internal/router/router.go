package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hannanlabs/socrates/internal/handler"
	"github.com/hannanlabs/socrates/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, jwtSecret string) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.AuthMiddleware(jwtSecret))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Agent 代理知识库
		agent := v1.Group("/agent")
		{
			agent.POST("/documents", h.Attachment.AttachDocument)
		}

		// Chat 聊天
		chats := v1.Group("/chats")
		{
			chats.POST("", h.Chat.CreateChat)
			chats.GET("", h.Chat.ListChats)
			chats.GET("/:id", h.Chat.GetChat)
			chats.PATCH("/:id/title", h.Chat.UpdateTitle)
			chats.POST("/:id/archive", h.Chat.ArchiveChat)
			chats.POST("/:id/messages", h.Chat.AddMessage)
			chats.GET("/:id/messages", h.Chat.GetMessages)
			chats.GET("/:id/documents", h.Document.ListChatDocuments)
		}

		// Document 文档
		docs := v1.Group("/documents")
		{
			docs.GET("", h.Document.ListMyDocuments)
			docs.GET("/:id", h.Document.GetDocument)
			docs.GET("/:id/content", h.Document.GetDocumentContent)
			docs.GET("/:id/url", h.Document.GetDocumentURL)
		}

		// Settings 用户设置
		settings := v1.Group("/settings")
		{
			settings.GET("", h.Settings.GetSettings)
			settings.PUT("", h.Settings.UpdateSettings)
		}
	}

	return r
}
