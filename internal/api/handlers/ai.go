package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quillpress/internal/ai"
	"quillpress/internal/api/middleware"
	"quillpress/internal/automation"
	"quillpress/internal/db"
	"quillpress/internal/history"
	"quillpress/internal/wordpress"
)

const settingKeyGeminiAPIKey = "gemini_api_key"

type AIHandler struct {
	geminiClient *ai.GeminiClient
	wpClient     *wordpress.Client
	history      *history.Store
}

type GeneratePostRequest struct {
	Topic         string `json:"topic" binding:"required"`
	Tone          string `json:"tone,omitempty"`
	Length        string `json:"length,omitempty"`
	WithImage     bool   `json:"with_image"`
	WithSiteLinks bool   `json:"with_site_links"`
	SaveToHistory bool   `json:"save_to_history"`
}

type GeneratePostResponse struct {
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`
	HistoryID string `json:"history_id,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

type ResearchRequest struct {
	Query string `json:"query" binding:"required"`
}

type SeoAnalysisRequest struct {
	Content string `json:"content" binding:"required"`
}

type RepurposeRequest struct {
	Content string `json:"content" binding:"required"`
	Format  string `json:"format" binding:"required"`
}

type APIKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

type AIConfigResponse struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model,omitempty"`
}

func NewAIHandler(geminiClient *ai.GeminiClient, wpClient *wordpress.Client, historyStore *history.Store) *AIHandler {
	return &AIHandler{
		geminiClient: geminiClient,
		wpClient:     wpClient,
		history:      historyStore,
	}
}

// GeneratePost produces a single article outside of an automation run. The
// header image is best-effort: a failed image call is reported as a warning
// on an otherwise successful response.
func (h *AIHandler) GeneratePost(c *gin.Context) {
	var req GeneratePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.geminiClient.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service not configured. Please set the API key first."})
		return
	}

	tone := req.Tone
	if tone == "" {
		tone = automation.ToneProfessional
	}
	if !automation.ValidTone(tone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tone: " + tone})
		return
	}
	length := req.Length
	if length == "" {
		length = automation.LengthMedium
	}
	if !automation.ValidLength(length) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid length: " + length})
		return
	}

	ctx := c.Request.Context()

	var existingPosts []wordpress.ExistingPost
	if req.WithSiteLinks {
		if creds, err := LoadCredentials(ctx); err == nil && creds.Complete() {
			if posts, err := h.wpClient.RecentPosts(ctx, creds); err == nil {
				existingPosts = posts
			}
		}
	}

	chunks, errs := h.geminiClient.GenerateArticleWithContext(ctx, req.Topic, tone, length, existingPosts)
	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		respondAIError(c, err, "Failed to generate post")
		return
	}

	resp := GeneratePostResponse{Content: sb.String()}

	if req.WithImage {
		image, err := h.geminiClient.GenerateImage(ctx, req.Topic)
		if err != nil {
			resp.Warning = fmt.Sprintf("Image generation failed: %v", err)
		} else {
			resp.Image = image
		}
	}

	if req.SaveToHistory {
		item, err := h.history.Append(ctx, req.Topic, resp.Content, resp.Image)
		if err != nil {
			resp.Warning = fmt.Sprintf("Failed to save to history: %v", err)
		} else {
			resp.HistoryID = item.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AIHandler) Research(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.geminiClient.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service not configured. Please set the API key first."})
		return
	}

	result, err := h.geminiClient.AnalyzeTopic(c.Request.Context(), req.Query)
	if err != nil {
		respondAIError(c, err, "Failed to research topic")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) AnalyzeSeo(c *gin.Context) {
	var req SeoAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.geminiClient.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service not configured. Please set the API key first."})
		return
	}

	result, err := h.geminiClient.AnalyzeSeo(c.Request.Context(), req.Content)
	if err != nil {
		respondAIError(c, err, "Failed to analyze content")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) Repurpose(c *gin.Context) {
	var req RepurposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.geminiClient.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service not configured. Please set the API key first."})
		return
	}

	content, err := h.geminiClient.Repurpose(c.Request.Context(), req.Content, req.Format)
	if err != nil {
		respondAIError(c, err, "Failed to repurpose content")
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *AIHandler) SetAPIKey(c *gin.Context) {
	var req APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encryptedKey, err := middleware.EncryptSetting(req.APIKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encrypt api key"})
		return
	}

	if err := db.Settings.SetSetting(c.Request.Context(), settingKeyGeminiAPIKey, encryptedKey, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save api key"})
		return
	}

	h.geminiClient.SetAPIKey(req.APIKey)

	c.JSON(http.StatusOK, gin.H{"message": "API key saved successfully"})
}

func (h *AIHandler) GetConfig(c *gin.Context) {
	configured := h.geminiClient.IsConfigured()
	model := ""
	if configured {
		model = h.geminiClient.GetModel()
	}

	c.JSON(http.StatusOK, AIConfigResponse{
		Configured: configured,
		Model:      model,
	})
}

func (h *AIHandler) DeleteAPIKey(c *gin.Context) {
	if err := db.Settings.DeleteSetting(c.Request.Context(), settingKeyGeminiAPIKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete api key"})
		return
	}

	h.geminiClient.SetAPIKey("")

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
}

// LoadAPIKey restores a previously saved key into the client at startup.
func (h *AIHandler) LoadAPIKey(ctx context.Context) error {
	setting, err := db.Settings.GetSetting(ctx, settingKeyGeminiAPIKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to get api key: %w", err)
	}

	decryptedKey, err := middleware.DecryptSetting(setting.Value)
	if err != nil {
		return fmt.Errorf("failed to decrypt api key: %w", err)
	}

	h.geminiClient.SetAPIKey(decryptedKey)
	return nil
}

func respondAIError(c *gin.Context, err error, fallback string) {
	if apiErr, ok := err.(*ai.GeminiError); ok {
		switch apiErr.Status {
		case "INVALID_ARGUMENT":
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request to AI service: " + apiErr.Message})
			return
		case "PERMISSION_DENIED":
			c.JSON(http.StatusForbidden, gin.H{"error": "API key invalid or quota exceeded"})
			return
		case "RESOURCE_EXHAUSTED":
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", fallback, err)})
}

func RegisterAIRoutes(router *gin.RouterGroup, handler *AIHandler) {
	ai := router.Group("/ai")
	{
		ai.POST("/generate", handler.GeneratePost)
		ai.POST("/research", handler.Research)
		ai.POST("/seo-analysis", handler.AnalyzeSeo)
		ai.POST("/repurpose", handler.Repurpose)
		ai.GET("/config", handler.GetConfig)
		ai.POST("/api-key", handler.SetAPIKey)
		ai.DELETE("/api-key", handler.DeleteAPIKey)
	}
}
