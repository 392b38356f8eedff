package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coinflip/internal/service"
)

type SettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/settings")
	group.GET("", h.list)
	group.PUT("/:key", h.update)
}

// @Summary List runtime switches
// @Tags settings
// @Produce json
// @Success 200 {array} models.SystemSetting
// @Router /api/v1/settings [get]
func (h *SettingsHandler) list(c *gin.Context) {
	items, err := h.Settings.List(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type updateSettingRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Toggle a runtime switch
// @Tags settings
// @Accept json
// @Produce json
// @Param key path string true "setting key"
// @Param request body updateSettingRequest true "desired state"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/v1/settings/{key} [put]
func (h *SettingsHandler) update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "setting key required", nil)
		return
	}
	if _, known := service.DefaultSwitches()[key]; !known {
		Error(c, http.StatusBadRequest, "unknown setting key", nil)
		return
	}
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "enabled(bool) required", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"key": key, "enabled": *req.Enabled}, nil)
}
