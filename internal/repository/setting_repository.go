package repository

import (
	"errors"

	"github.com/hannanlabs/socrates/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 用户设置仓库
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetByUserID 获取用户设置，不存在返回 nil
func (r *SettingRepository) GetByUserID(userID string) (*model.UserSetting, error) {
	var setting model.UserSetting
	err := r.db.Where("user_id = ?", userID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert 写入或更新用户设置
func (r *SettingRepository) Upsert(setting *model.UserSetting) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"theme", "model_preference", "updated_at"}),
	}).Create(setting).Error
}
