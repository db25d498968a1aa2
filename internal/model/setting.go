package model

import "time"

// UserSetting 用户偏好设置
type UserSetting struct {
	UserID          string    `json:"user_id" gorm:"primaryKey;size:36"`
	Theme           string    `json:"theme" gorm:"size:20;default:system"`
	ModelPreference string    `json:"model_preference" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserSetting) TableName() string {
	return "user_settings"
}
