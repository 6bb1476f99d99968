package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zero-Zino/gamevault/api/sse"
	"github.com/zero-Zino/gamevault/model"
	"github.com/zero-Zino/gamevault/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	sched  *scheduler.Scheduler
	sse    *sse.Handler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, sseH *sse.Handler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, sched: sched, sse: sseH, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var users, games, pending int64
	h.db.Model(&model.User{}).Count(&users)
	h.db.Model(&model.Game{}).Count(&games)
	h.db.Model(&model.OutboxEvent{}).Where("delivered_at IS NULL").Count(&pending)

	c.JSON(http.StatusOK, gin.H{
		"users":           users,
		"games":           games,
		"pending_events":  pending,
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// BanUser bans or unbans a user account.
// POST /api/admin/users/:id/ban
func (h *AdminHandler) BanUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	_ = c.ShouldBindJSON(&req)

	status := 1
	if req.Ban {
		status = 0
	}
	result := h.db.Model(&model.User{}).Where("id = ?", userID).Update("status", status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	h.logger.Info("admin updated ban status",
		zap.Int64("user_id", userID), zap.Bool("ban", req.Ban))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Announce broadcasts a system announcement to all connected SSE clients.
// POST /api/admin/announce
func (h *AdminHandler) Announce(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sse.Announce(c.Request.Context(), req.Message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListSchedulerTasks returns the registered periodic tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tickers": h.sched.ListTickers()})
}

// AdminAuth guards admin routes with a static key header.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
