package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hannanlabs/socrates/internal/config"
)

// Storage 文件存储接口
type Storage interface {
	// Save 保存文件，返回存储键；键必须唯一，禁止覆盖已有对象
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// Get 获取文件内容
	Get(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Delete 删除文件，补偿清理时以 best-effort 方式调用
	Delete(ctx context.Context, storageKey string) error
	// GetURL 获取文件的访问URL，无法提供时返回空字符串
	GetURL(storageKey string) string
}

// SaveRequest 保存文件请求
type SaveRequest struct {
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMinIO StorageType = "minio"
)

// NewFromConfig 根据配置创建存储后端
func NewFromConfig(cfg *config.StorageConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case StorageTypeLocal:
		basePath := cfg.BasePath
		if basePath == "" {
			basePath = "./data/files"
		}
		urlPrefix := cfg.URLPrefix
		if urlPrefix == "" {
			urlPrefix = "/files"
		}
		return NewLocalStorage(basePath, urlPrefix)

	case StorageTypeMinIO:
		if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		urlPrefix := cfg.URLPrefix
		if urlPrefix == "" {
			urlPrefix = fmt.Sprintf("%s/%s", cfg.Endpoint, cfg.Bucket)
		}
		return NewMinIOStorage(&MinIOConfig{
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			BucketName: cfg.Bucket,
			UseSSL:     cfg.UseSSL,
			URLPrefix:  urlPrefix,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// sanitizeFileName 清理文件名中不适合出现在存储键里的字符
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" || strings.Trim(s, "._") == "" {
		return "file"
	}
	return s
}
