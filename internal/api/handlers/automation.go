package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"quillpress/internal/automation"
)

type AutomationHandler struct {
	engine *automation.Engine
}

type StartAutomationRequest struct {
	Topics        []string `json:"topics" binding:"required"`
	Tone          string   `json:"tone,omitempty"`
	Length        string   `json:"length,omitempty"`
	AutoPublish   bool     `json:"auto_publish"`
	SchedulePosts bool     `json:"schedule_posts"`
	PublishTimes  []string `json:"publish_times,omitempty"`
}

type AutomationStatusResponse struct {
	Running bool             `json:"running"`
	Jobs    []automation.Job `json:"jobs"`
}

func NewAutomationHandler(engine *automation.Engine) *AutomationHandler {
	return &AutomationHandler{engine: engine}
}

// Start validates the request, snapshots the stored site credentials, and
// kicks off the run in the background. The queue is then observable via
// Status and webhooks.
func (h *AutomationHandler) Start(c *gin.Context) {
	var req StartAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.engine.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "automation run already in progress"})
		return
	}

	settings := automation.Settings{
		Tone:          req.Tone,
		Length:        req.Length,
		AutoPublish:   req.AutoPublish,
		SchedulePosts: req.SchedulePosts,
		PublishTimes:  req.PublishTimes,
	}
	if settings.Tone == "" {
		settings.Tone = automation.ToneProfessional
	}
	if settings.Length == "" {
		settings.Length = automation.LengthMedium
	}
	if !automation.ValidTone(settings.Tone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tone: " + settings.Tone})
		return
	}
	if !automation.ValidLength(settings.Length) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid length: " + settings.Length})
		return
	}
	if settings.AutoPublish && settings.SchedulePosts {
		if err := automation.ValidateSlots(settings.PublishTimes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	creds, err := LoadCredentials(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings.AutoPublish && !creds.Complete() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WordPress credentials not configured"})
		return
	}

	// The run outlives this request.
	go func() {
		if err := h.engine.Run(context.Background(), req.Topics, settings, creds); err != nil {
			log.Printf("[automation] run rejected: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "Automation started"})
}

func (h *AutomationHandler) Stop(c *gin.Context) {
	if !h.engine.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "no automation run in progress"})
		return
	}

	h.engine.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Stop requested"})
}

func (h *AutomationHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, AutomationStatusResponse{
		Running: h.engine.IsRunning(),
		Jobs:    h.engine.Snapshot(),
	})
}

func RegisterAutomationRoutes(router *gin.RouterGroup, handler *AutomationHandler) {
	auto := router.Group("/automation")
	{
		auto.POST("/start", handler.Start)
		auto.POST("/stop", handler.Stop)
		auto.GET("/status", handler.Status)
	}
}
