package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/zero-Zino/gamevault/middleware"
	"github.com/zero-Zino/gamevault/notify"
)

// NotificationHandler handles user notification REST endpoints.
type NotificationHandler struct {
	notify *notify.Service
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(n *notify.Service) *NotificationHandler {
	return &NotificationHandler{notify: n}
}

// List handles GET /api/notifications?limit=20.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.notify.List(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	unread, err := h.notify.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

// MarkRead handles POST /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notify.MarkRead(c.Request.Context(), userID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := mw.GetUserID(c)
	if err := h.notify.MarkAllRead(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
