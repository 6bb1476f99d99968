package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/zero-Zino/gamevault/middleware"
	"github.com/zero-Zino/gamevault/rewards"
)

// RewardHandler handles reward point REST endpoints.
type RewardHandler struct {
	rewards *rewards.Service
}

// NewRewardHandler creates a RewardHandler.
func NewRewardHandler(r *rewards.Service) *RewardHandler {
	return &RewardHandler{rewards: r}
}

// Balance handles GET /api/rewards/balance.
func (h *RewardHandler) Balance(c *gin.Context) {
	userID := mw.GetUserID(c)
	balance, err := h.rewards.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": balance})
}

// History handles GET /api/rewards/history?limit=20.
func (h *RewardHandler) History(c *gin.Context) {
	userID := mw.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.rewards.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Leaderboard handles GET /api/rewards/leaderboard?n=10.
func (h *RewardHandler) Leaderboard(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))
	top, err := h.rewards.Top(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": top})
}
