package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quillpress/internal/archive"
	"quillpress/internal/history"
)

type HistoryHandler struct {
	store    *history.Store
	archiver *archive.Archiver
}

func NewHistoryHandler(store *history.Store, archiver *archive.Archiver) *HistoryHandler {
	return &HistoryHandler{store: store, archiver: archiver}
}

func (h *HistoryHandler) List(c *gin.Context) {
	items, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *HistoryHandler) Get(c *gin.Context) {
	item, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "history item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "history item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete history item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History item deleted"})
}

func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

func (h *HistoryHandler) ListArchives(c *gin.Context) {
	files, err := h.archiver.ListArchives()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list archives"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archives": files})
}

func (h *HistoryHandler) RunArchive(c *gin.Context) {
	if err := h.archiver.RunArchive(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Archive run completed"})
}

func RegisterHistoryRoutes(router *gin.RouterGroup, handler *HistoryHandler) {
	hist := router.Group("/history")
	{
		hist.GET("", handler.List)
		hist.GET("/:id", handler.Get)
		hist.DELETE("/:id", handler.Delete)
		hist.DELETE("", handler.Clear)
		hist.GET("/archives", handler.ListArchives)
		hist.POST("/archives/run", handler.RunArchive)
	}
}
