package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quillpress/internal/automation"
	"quillpress/internal/config"
	"quillpress/internal/db"
)

const (
	settingKeyDefaultTone   = "default_tone"
	settingKeyDefaultLength = "default_length"
	settingKeyAutoPublish   = "auto_publish"
	settingKeySchedulePosts = "schedule_posts"
	settingKeyPublishTimes  = "publish_times"
)

type SettingsHandler struct {
	config *config.Config
}

type PreferencesResponse struct {
	DefaultTone   string   `json:"default_tone"`
	DefaultLength string   `json:"default_length"`
	AutoPublish   bool     `json:"auto_publish"`
	SchedulePosts bool     `json:"schedule_posts"`
	PublishTimes  []string `json:"publish_times"`
}

type UpdatePreferencesRequest struct {
	DefaultTone   string   `json:"default_tone,omitempty"`
	DefaultLength string   `json:"default_length,omitempty"`
	AutoPublish   *bool    `json:"auto_publish,omitempty"`
	SchedulePosts *bool    `json:"schedule_posts,omitempty"`
	PublishTimes  []string `json:"publish_times,omitempty"`
}

type ServerConfigResponse struct {
	Port        int    `json:"port"`
	ArchivePath string `json:"archive_path"`
	ArchiveDays int    `json:"archive_days"`
	AIModel     string `json:"ai_model"`
}

func NewSettingsHandler(cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{config: cfg}
}

func (h *SettingsHandler) GetPreferences(c *gin.Context) {
	ctx := c.Request.Context()
	resp := PreferencesResponse{
		DefaultTone:   automation.ToneProfessional,
		DefaultLength: automation.LengthMedium,
		PublishTimes:  []string{},
	}

	if setting, err := db.Settings.GetSetting(ctx, settingKeyDefaultTone); err == nil {
		resp.DefaultTone = setting.Value
	}
	if setting, err := db.Settings.GetSetting(ctx, settingKeyDefaultLength); err == nil {
		resp.DefaultLength = setting.Value
	}
	if setting, err := db.Settings.GetSetting(ctx, settingKeyAutoPublish); err == nil {
		resp.AutoPublish = setting.Value == "true"
	}
	if setting, err := db.Settings.GetSetting(ctx, settingKeySchedulePosts); err == nil {
		resp.SchedulePosts = setting.Value == "true"
	}
	if setting, err := db.Settings.GetSetting(ctx, settingKeyPublishTimes); err == nil && setting.Value != "" {
		resp.PublishTimes = strings.Split(setting.Value, ",")
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SettingsHandler) UpdatePreferences(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if req.DefaultTone != "" {
		if !automation.ValidTone(req.DefaultTone) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tone: " + req.DefaultTone})
			return
		}
		if err := db.Settings.SetSetting(ctx, settingKeyDefaultTone, req.DefaultTone, false); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
			return
		}
	}

	if req.DefaultLength != "" {
		if !automation.ValidLength(req.DefaultLength) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid length: " + req.DefaultLength})
			return
		}
		if err := db.Settings.SetSetting(ctx, settingKeyDefaultLength, req.DefaultLength, false); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
			return
		}
	}

	if req.AutoPublish != nil {
		if err := db.Settings.SetSetting(ctx, settingKeyAutoPublish, strconv.FormatBool(*req.AutoPublish), false); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
			return
		}
	}

	if req.SchedulePosts != nil {
		if err := db.Settings.SetSetting(ctx, settingKeySchedulePosts, strconv.FormatBool(*req.SchedulePosts), false); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
			return
		}
	}

	if req.PublishTimes != nil {
		if err := automation.ValidateSlots(req.PublishTimes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := db.Settings.SetSetting(ctx, settingKeyPublishTimes, strings.Join(req.PublishTimes, ","), false); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
			return
		}
	}

	h.GetPreferences(c)
}

func (h *SettingsHandler) GetServerConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ServerConfigResponse{
		Port:        h.config.Server.Port,
		ArchivePath: h.config.Database.ArchivePath,
		ArchiveDays: h.config.Database.ArchiveDays,
		AIModel:     h.config.AI.Model,
	})
}

func RegisterSettingsRoutes(router *gin.RouterGroup, handler *SettingsHandler) {
	settings := router.Group("/settings")
	{
		settings.GET("/preferences", handler.GetPreferences)
		settings.PUT("/preferences", handler.UpdatePreferences)
		settings.GET("/server", handler.GetServerConfig)
	}
}
