package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zero-Zino/gamevault/audit"
	"github.com/zero-Zino/gamevault/gamification"
	mw "github.com/zero-Zino/gamevault/middleware"
	"go.uber.org/zap"
)

// GamificationHandler handles quest and adventure REST endpoints.
type GamificationHandler struct {
	catalog    *gamification.Catalog
	quests     *gamification.QuestService
	adventures *gamification.AdventureService
	audit      *audit.Service
	logger     *zap.Logger
}

// NewGamificationHandler creates a GamificationHandler.
func NewGamificationHandler(catalog *gamification.Catalog, quests *gamification.QuestService,
	adventures *gamification.AdventureService, auditSvc *audit.Service, logger *zap.Logger) *GamificationHandler {
	return &GamificationHandler{
		catalog: catalog, quests: quests, adventures: adventures,
		audit: auditSvc, logger: logger,
	}
}

// ListDefinitions handles GET /api/gamification/definitions.
func (h *GamificationHandler) ListDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"quests":     h.catalog.Quests(),
		"adventures": h.catalog.Adventures(),
	})
}

// UserProgress handles GET /api/gamification/progress.
func (h *GamificationHandler) UserProgress(c *gin.Context) {
	userID := mw.GetUserID(c)
	quests, err := h.quests.UserQuests(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	adventures, err := h.adventures.UserAdventures(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests, "adventures": adventures})
}

// QuestStatus handles GET /api/gamification/quests/:id.
func (h *GamificationHandler) QuestStatus(c *gin.Context) {
	userID := mw.GetUserID(c)
	snap, err := h.quests.Status(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RecomputeQuest handles POST /api/gamification/quests/:id/recompute.
func (h *GamificationHandler) RecomputeQuest(c *gin.Context) {
	userID := mw.GetUserID(c)
	questID := c.Param("id")
	start := time.Now()

	snap, err := h.quests.Recompute(c.Request.Context(), userID, questID)
	h.record(c, userID, "quest_recompute", gin.H{"quest_id": questID}, snap, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AdventureStatus handles GET /api/gamification/adventures/:id.
func (h *GamificationHandler) AdventureStatus(c *gin.Context) {
	userID := mw.GetUserID(c)
	snap, err := h.adventures.Status(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// StartAdventure handles POST /api/gamification/adventures/:id/start.
func (h *GamificationHandler) StartAdventure(c *gin.Context) {
	userID := mw.GetUserID(c)
	adventureID := c.Param("id")
	start := time.Now()

	snap, err := h.adventures.Start(c.Request.Context(), userID, adventureID)
	h.record(c, userID, "adventure_start", gin.H{"adventure_id": adventureID}, snap, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type progressRequest struct {
	GameID int64 `json:"game_id" binding:"required"`
}

// ProgressAdventure handles POST /api/gamification/adventures/:id/progress.
func (h *GamificationHandler) ProgressAdventure(c *gin.Context) {
	userID := mw.GetUserID(c)
	adventureID := c.Param("id")

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start := time.Now()

	snap, err := h.adventures.Progress(c.Request.Context(), userID, adventureID, req.GameID)
	h.record(c, userID, "adventure_progress",
		gin.H{"adventure_id": adventureID, "game_id": req.GameID}, snap, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SkipAdventureGame handles POST /api/gamification/adventures/:id/skip.
func (h *GamificationHandler) SkipAdventureGame(c *gin.Context) {
	userID := mw.GetUserID(c)
	adventureID := c.Param("id")
	start := time.Now()

	snap, err := h.adventures.Skip(c.Request.Context(), userID, adventureID)
	h.record(c, userID, "adventure_skip", gin.H{"adventure_id": adventureID}, snap, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// fail maps engine errors onto HTTP statuses.
func (h *GamificationHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gamification.ErrDefinitionNotFound),
		errors.Is(err, gamification.ErrProgressNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gamification.ErrAlreadyStarted),
		errors.Is(err, gamification.ErrAlreadyCompleted),
		errors.Is(err, gamification.ErrWrongGame),
		errors.Is(err, gamification.ErrNoAlternative):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gamification.ErrNoEligibleGames):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("gamification handler error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *GamificationHandler) record(c *gin.Context, userID int64, action string,
	request interface{}, response interface{}, err error, start time.Time) {
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &userID,
		Action:     action,
		Request:    request,
		Response:   response,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.audit.Log(entry)
}

// parseID is shared by handlers taking numeric path params.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
