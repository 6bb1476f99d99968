package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/library"
	mw "github.com/zero-Zino/gamevault/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LibraryHandler handles user library REST endpoints.
type LibraryHandler struct {
	library *library.Service
	quests  *gamification.QuestService
	logger  *zap.Logger
}

// NewLibraryHandler creates a LibraryHandler.
func NewLibraryHandler(lib *library.Service, quests *gamification.QuestService, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{library: lib, quests: quests, logger: logger}
}

// List handles GET /api/library.
func (h *LibraryHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	entries, err := h.library.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

type addGameRequest struct {
	GameID int64 `json:"game_id" binding:"required"`
}

// Add handles POST /api/library.
// Acquiring a game refreshes every counting quest for the user.
func (h *LibraryHandler) Add(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req addGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.library.Add(c.Request.Context(), userID, req.GameID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	quests, err := h.quests.RecomputeAll(c.Request.Context(), userID)
	if err != nil {
		// Ownership is recorded; quest counters catch up on the next check.
		h.logger.Warn("quest recompute after library add failed",
			zap.Int64("user_id", userID),
			zap.Int64("game_id", req.GameID),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"added": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true, "quests": quests})
}
