package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage 本地文件存储
type LocalStorage struct {
	basePath  string // 基础路径
	urlPrefix string // URL前缀，用于生成访问URL
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath, urlPrefix string) (*LocalStorage, error) {
	// 确保基础路径存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// Save 保存文件到本地
// 存储键: {ownerID}/{uuid}-{sanitizedName}，uuid 后缀保证并发上传同名文件不冲突
func (s *LocalStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	storageKey := fmt.Sprintf("%s/%s-%s", req.OwnerID, uuid.New().String(), sanitizeFileName(req.FileName))
	fullPath := filepath.Join(s.basePath, storageKey)

	// 创建目录
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// O_EXCL 禁止覆盖已有对象
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// 写入内容
	if _, err := io.Copy(file, req.Reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return storageKey, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.basePath, storageKey)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete 删除文件，文件不存在不算错误
func (s *LocalStorage) Delete(ctx context.Context, storageKey string) error {
	fullPath := filepath.Join(s.basePath, storageKey)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetURL 获取文件的访问URL，未配置URL前缀时返回空串
func (s *LocalStorage) GetURL(storageKey string) string {
	if s.urlPrefix == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, storageKey)
}
