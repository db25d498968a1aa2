package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hannanlabs/socrates/internal/config"
	"github.com/hannanlabs/socrates/internal/database"
	"github.com/hannanlabs/socrates/internal/handler"
	"github.com/hannanlabs/socrates/internal/repository"
	"github.com/hannanlabs/socrates/internal/router"
	"github.com/hannanlabs/socrates/internal/service/attachment"
	chatsvc "github.com/hannanlabs/socrates/internal/service/chat"
	"github.com/hannanlabs/socrates/internal/service/knowledgebase"
	settingssvc "github.com/hannanlabs/socrates/internal/service/settings"
	"github.com/hannanlabs/socrates/internal/service/storage"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connected: %s", cfg.Database.DBName)

	// 初始化 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 初始化存储后端
	blobStore, err := storage.NewFromConfig(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)

	// 知识库客户端按请求携带的 API Key 构造
	kbFactory := func(apiKey string) attachment.KnowledgeBase {
		return knowledgebase.NewClient(apiKey,
			knowledgebase.WithBaseURL(cfg.KnowledgeBase.BaseURL),
			knowledgebase.WithSchema(knowledgebase.SchemaType(cfg.KnowledgeBase.Schema)),
			knowledgebase.WithTimeout(time.Duration(cfg.KnowledgeBase.Timeout)*time.Second),
		)
	}

	attachSvc := attachment.NewService(blobStore, kbFactory, repos.Document,
		attachment.WithRedisLease(redisClient, 60*time.Second),
	)
	chatSvc := chatsvc.NewService(repos.Chat)
	settingsSvc := settingssvc.NewService(repos.Setting)

	handlers := handler.NewHandlers(attachSvc, chatSvc, settingsSvc, repos, blobStore)

	// 初始化路由
	r := router.SetupRouter(handlers, cfg.Auth.JWTSecret)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
