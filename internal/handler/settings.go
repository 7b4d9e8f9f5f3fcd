package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pickeld/lucy/internal/errors"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/settings"
)

// SettingsHandler serves CRUD over C1's typed key/value settings
// store: every chat/embedding/rerank/ingestion/retrieval tuning knob
// the rest of the system reads through settings.Store.
type SettingsHandler struct {
	store    *settings.Store
	defaults []settings.Default
}

// NewSettingsHandler creates a new SettingsHandler. defaults is the
// catalog ResetDefaults restores a category to — the same
// settings.BuiltinDefaults slice NewHost seeds the store with,
// extended with whatever plugins have registered by boot time.
func NewSettingsHandler(store *settings.Store, defaults []settings.Default) *SettingsHandler {
	return &SettingsHandler{store: store, defaults: defaults}
}

// SettingDTO is one settings row as rendered over the wire — secret
// values are masked so they never round-trip to a browser.
type SettingDTO struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func toDTO(s settings.Setting) SettingDTO {
	return SettingDTO{
		Key:         s.Key,
		Value:       settings.MaskForDisplay(s.Type, s.Value),
		Category:    s.Category,
		Type:        string(s.Type),
		Description: s.Description,
	}
}

// ListSettings godoc
// @Summary      List settings
// @Description  Returns every setting, optionally filtered by category
// @Tags         settings
// @Produce      json
// @Param        category  query     string  false  "settings category"
// @Success      200       {object}  map[string]interface{}
// @Router       /settings [get]
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	ctx := c.Request.Context()

	var rows []settings.Setting
	var err error
	if category := c.Query("category"); category != "" {
		rows, err = h.store.GetByCategory(ctx, category)
	} else {
		rows, err = h.store.All(ctx)
	}
	if err != nil {
		c.Error(errors.Wrap(errors.CodeInternal, "listing settings", err))
		return
	}

	out := make([]SettingDTO, len(rows))
	for i, r := range rows {
		out[i] = toDTO(r)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

// UpdateSettingRequest is the body of a single-key settings update.
type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

// SetSettingRequest is the body of POST /settings, which identifies the
// key in the body rather than the path.
type SetSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// SetSetting godoc
// @Summary      Set a setting
// @Description  Sets the value of a single settings key, named in the body
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request  body      SetSettingRequest  true  "key and new value"
// @Success      200      {object}  map[string]interface{}
// @Router       /settings [post]
func (h *SettingsHandler) SetSetting(c *gin.Context) {
	ctx := c.Request.Context()

	var req SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	if err := h.store.Set(ctx, req.Key, req.Value); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "settings", "key": req.Key})
		c.Error(errors.Wrap(errors.CodeInternal, "setting value", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateSetting godoc
// @Summary      Update a setting
// @Description  Sets the value of a single settings key
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        key      path      string                 true  "setting key"
// @Param        request  body      UpdateSettingRequest   true  "new value"
// @Success      200      {object}  map[string]interface{}
// @Router       /settings/{key} [put]
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	if err := h.store.Set(ctx, key, req.Value); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "settings", "key": key})
		c.Error(errors.Wrap(errors.CodeInternal, "updating setting", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetSettingsRequest names the category to restore to its builtin
// defaults.
type ResetSettingsRequest struct {
	Category string `json:"category" binding:"required"`
}

// ResetSettings godoc
// @Summary      Reset a settings category
// @Description  Restores every key in a category to its builtin default
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request  body      ResetSettingsRequest  true  "category to reset"
// @Success      200      {object}  map[string]interface{}
// @Router       /settings/reset [post]
func (h *SettingsHandler) ResetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	var req ResetSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	if err := h.store.ResetDefaults(ctx, req.Category, h.defaults); err != nil {
		c.Error(errors.Wrap(errors.CodeInternal, "resetting settings", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
