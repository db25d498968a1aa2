// Package settings 提供用户偏好设置的读写
package settings

import (
	"context"
	"fmt"

	"github.com/hannanlabs/socrates/internal/model"
)

// 默认偏好
const (
	defaultTheme = "system"
	defaultModel = ""
)

// Repository 设置仓库契约
type Repository interface {
	GetByUserID(userID string) (*model.UserSetting, error)
	Upsert(setting *model.UserSetting) error
}

// Service 用户设置服务
type Service struct {
	repo Repository
}

// NewService 创建设置服务
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get 获取用户设置，从未写入过时返回默认值
func (s *Service) Get(ctx context.Context, userID string) (*model.UserSetting, error) {
	setting, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if setting == nil {
		return &model.UserSetting{
			UserID:          userID,
			Theme:           defaultTheme,
			ModelPreference: defaultModel,
		}, nil
	}
	return setting, nil
}

// Update 写入或更新用户设置
func (s *Service) Update(ctx context.Context, userID, theme, modelPreference string) (*model.UserSetting, error) {
	if theme == "" {
		theme = defaultTheme
	}
	setting := &model.UserSetting{
		UserID:          userID,
		Theme:           theme,
		ModelPreference: modelPreference,
	}
	if err := s.repo.Upsert(setting); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return setting, nil
}
