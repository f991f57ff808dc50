package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quillpress/internal/db"
)

const settingKeyGscConnected = "gsc_connected"

// GscHandler serves Search Console data. The real OAuth flow is not wired
// up yet; connect flips a flag and the keyword report is a fixture.
// TODO: replace with the Search Console API once the OAuth client is registered.
type GscHandler struct{}

type GscKeyword struct {
	Query       string `json:"query"`
	Clicks      int    `json:"clicks"`
	Impressions int    `json:"impressions"`
}

var topKeywords = []GscKeyword{
	{Query: "how to improve content marketing roi", Clicks: 1520, Impressions: 45000},
	{Query: "best ai content generation tools 2024", Clicks: 1250, Impressions: 38000},
	{Query: "seo strategies for B2B tech companies", Clicks: 980, Impressions: 29000},
	{Query: "what is programmatic seo", Clicks: 850, Impressions: 25000},
	{Query: "content repurposing workflow", Clicks: 760, Impressions: 22000},
	{Query: "automating blog post publishing", Clicks: 640, Impressions: 19500},
	{Query: "using google search console for content ideas", Clicks: 590, Impressions: 18000},
	{Query: "creating a content calendar with AI", Clicks: 510, Impressions: 16000},
	{Query: "wordpress application password setup", Clicks: 450, Impressions: 14000},
	{Query: "how to write a good meta description", Clicks: 420, Impressions: 13500},
	{Query: "ai in digital marketing trends", Clicks: 380, Impressions: 12000},
	{Query: "long-form vs short-form content seo", Clicks: 350, Impressions: 11000},
}

func NewGscHandler() *GscHandler {
	return &GscHandler{}
}

func (h *GscHandler) Connect(c *gin.Context) {
	if err := db.Settings.SetSetting(c.Request.Context(), settingKeyGscConnected, "true", false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save connection state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GscHandler) Disconnect(c *gin.Context) {
	if err := db.Settings.DeleteSetting(c.Request.Context(), settingKeyGscConnected); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear connection state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GscHandler) Status(c *gin.Context) {
	connected := false
	if setting, err := db.Settings.GetSetting(c.Request.Context(), settingKeyGscConnected); err == nil {
		connected = setting.Value == "true"
	}
	c.JSON(http.StatusOK, gin.H{"connected": connected})
}

func (h *GscHandler) TopKeywords(c *gin.Context) {
	setting, err := db.Settings.GetSetting(c.Request.Context(), settingKeyGscConnected)
	if err != nil || setting.Value != "true" {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "Search Console is not connected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": topKeywords})
}

func RegisterGscRoutes(router *gin.RouterGroup, handler *GscHandler) {
	gsc := router.Group("/gsc")
	{
		gsc.POST("/connect", handler.Connect)
		gsc.POST("/disconnect", handler.Disconnect)
		gsc.GET("/status", handler.Status)
		gsc.GET("/keywords", handler.TopKeywords)
	}
}
