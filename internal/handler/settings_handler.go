package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hannanlabs/socrates/internal/middleware"
	settingssvc "github.com/hannanlabs/socrates/internal/service/settings"
)

// SettingsHandler 用户设置处理器
type SettingsHandler struct {
	svc *settingssvc.Service
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(svc *settingssvc.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// GetSettings 获取当前用户设置
// @Summary      获取用户设置
// @Tags         设置
// @Produce      json
// @Router       /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "authentication required")
		return
	}

	setting, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, setting)
}

// UpdateSettings 更新当前用户设置
// @Summary      更新用户设置
// @Tags         设置
// @Accept       json
// @Produce      json
// @Router       /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "authentication required")
		return
	}

	var req struct {
		Theme           string `json:"theme"`
		ModelPreference string `json:"model_preference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	setting, err := h.svc.Update(c.Request.Context(), userID, req.Theme, req.ModelPreference)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, setting)
}
