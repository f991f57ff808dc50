package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quillpress/internal/api/middleware"
	"quillpress/internal/db"
	"quillpress/internal/wordpress"
)

const (
	settingKeyWPURL      = "wp_url"
	settingKeyWPUsername = "wp_username"
	settingKeyWPPassword = "wp_password"
)

type WordPressHandler struct {
	client *wordpress.Client
}

type CredentialsRequest struct {
	URL      string `json:"url" binding:"required,url"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ConnectionStatusResponse struct {
	Configured bool   `json:"configured"`
	URL        string `json:"url,omitempty"`
	Username   string `json:"username,omitempty"`
}

type PublishRequest struct {
	Content    string `json:"content" binding:"required"`
	Image      string `json:"image,omitempty"`
	ScheduleAt string `json:"schedule_at,omitempty"`
}

func NewWordPressHandler(client *wordpress.Client) *WordPressHandler {
	return &WordPressHandler{client: client}
}

// LoadCredentials reads the stored site credentials. The password is sealed
// at rest; a missing key set yields zero-value credentials, not an error.
func LoadCredentials(ctx context.Context) (wordpress.Credentials, error) {
	var creds wordpress.Credentials

	urlSetting, err := db.Settings.GetSetting(ctx, settingKeyWPURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return creds, nil
		}
		return creds, fmt.Errorf("failed to load site url: %w", err)
	}
	creds.URL = urlSetting.Value

	if setting, err := db.Settings.GetSetting(ctx, settingKeyWPUsername); err == nil {
		creds.Username = setting.Value
	}

	if setting, err := db.Settings.GetSetting(ctx, settingKeyWPPassword); err == nil {
		password, err := middleware.DecryptSetting(setting.Value)
		if err != nil {
			return creds, fmt.Errorf("failed to decrypt site password: %w", err)
		}
		creds.Password = password
	}

	return creds, nil
}

func (h *WordPressHandler) SaveCredentials(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encryptedPassword, err := middleware.EncryptSetting(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encrypt password"})
		return
	}

	ctx := c.Request.Context()
	if err := db.Settings.SetSetting(ctx, settingKeyWPURL, req.URL, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save credentials"})
		return
	}
	if err := db.Settings.SetSetting(ctx, settingKeyWPUsername, req.Username, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save credentials"})
		return
	}
	if err := db.Settings.SetSetting(ctx, settingKeyWPPassword, encryptedPassword, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credentials saved"})
}

func (h *WordPressHandler) DeleteCredentials(c *gin.Context) {
	ctx := c.Request.Context()
	for _, key := range []string{settingKeyWPURL, settingKeyWPUsername, settingKeyWPPassword} {
		if err := db.Settings.DeleteSetting(ctx, key); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete credentials"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Credentials deleted"})
}

func (h *WordPressHandler) GetStatus(c *gin.Context) {
	creds, err := LoadCredentials(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := ConnectionStatusResponse{Configured: creds.Complete()}
	if resp.Configured {
		resp.URL = creds.URL
		resp.Username = creds.Username
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WordPressHandler) TestConnection(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds := wordpress.Credentials{URL: req.URL, Username: req.Username, Password: req.Password}
	user, err := h.client.TestConnection(c.Request.Context(), creds)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connection successful", "user": user})
}

// Publish pushes a single article to the configured site, immediately or at
// the requested RFC 3339 time.
func (h *WordPressHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	creds, err := LoadCredentials(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !creds.Complete() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WordPress credentials not configured"})
		return
	}

	var scheduleAt *time.Time
	if req.ScheduleAt != "" {
		at, err := time.Parse(time.RFC3339, req.ScheduleAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "schedule_at must be an RFC 3339 timestamp"})
			return
		}
		scheduleAt = &at
	}

	result, err := h.client.Publish(ctx, creds, req.Content, req.Image, scheduleAt)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WordPressHandler) RecentPosts(c *gin.Context) {
	ctx := c.Request.Context()
	creds, err := LoadCredentials(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !creds.Complete() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WordPress credentials not configured"})
		return
	}

	posts, err := h.client.RecentPosts(ctx, creds)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func RegisterWordPressRoutes(router *gin.RouterGroup, handler *WordPressHandler) {
	wp := router.Group("/wordpress")
	{
		wp.GET("/status", handler.GetStatus)
		wp.PUT("/credentials", handler.SaveCredentials)
		wp.DELETE("/credentials", handler.DeleteCredentials)
		wp.POST("/test", handler.TestConnection)
		wp.POST("/publish", handler.Publish)
		wp.GET("/posts", handler.RecentPosts)
	}
}
