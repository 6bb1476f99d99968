package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zero-Zino/gamevault/store"
	"gorm.io/gorm"
)

// StoreHandler handles game catalog REST endpoints.
type StoreHandler struct {
	store *store.Service
}

// NewStoreHandler creates a StoreHandler.
func NewStoreHandler(s *store.Service) *StoreHandler {
	return &StoreHandler{store: s}
}

// List handles GET /api/store/games?genre=indie&limit=20.
func (h *StoreHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	games, err := h.store.List(c.Request.Context(), c.Query("genre"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games, "count": len(games)})
}

// Get handles GET /api/store/games/:id.
func (h *StoreHandler) Get(c *gin.Context) {
	gameID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	game, err := h.store.Get(c.Request.Context(), gameID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, game)
}

// Genres handles GET /api/store/genres.
func (h *StoreHandler) Genres(c *gin.Context) {
	genres, err := h.store.Genres(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}
