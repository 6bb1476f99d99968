package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zero-Zino/gamevault/cache"
	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GameRef is the slim catalog view handed to the gamification engine.
type GameRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Genre string `json:"genre"`
}

// Service answers catalog queries. Genre pools are cached because the
// progression engine hits the same small set of genres on every selection.
type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService creates a store Service.
func NewService(db *gorm.DB, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{db: db, cache: c, cacheTTL: cacheTTL, logger: logger}
}

// GamesInGenre returns every catalog game tagged with the given genre.
func (svc *Service) GamesInGenre(ctx context.Context, genre string) ([]GameRef, error) {
	cacheKey := "store:genre:" + genre
	if raw, err := svc.cache.Get(ctx, cacheKey); err == nil {
		var refs []GameRef
		if jsonErr := json.Unmarshal([]byte(raw), &refs); jsonErr == nil {
			return refs, nil
		}
	}

	var refs []GameRef
	err := svc.db.WithContext(ctx).
		Model(&model.Game{}).
		Select("games.id, games.title, game_genres.genre").
		Joins("JOIN game_genres ON game_genres.game_id = games.id").
		Where("game_genres.genre = ?", genre).
		Order("games.id").
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(refs); err == nil {
		if cacheErr := svc.cache.Set(ctx, cacheKey, string(raw), svc.cacheTTL); cacheErr != nil {
			svc.logger.Warn("genre pool cache write failed",
				zap.String("genre", genre), zap.Error(cacheErr))
		}
	}
	return refs, nil
}

// Get returns one game by id.
func (svc *Service) Get(ctx context.Context, gameID int64) (*model.Game, error) {
	var game model.Game
	if err := svc.db.WithContext(ctx).First(&game, gameID).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// Genres returns the distinct genre tags present in the catalog.
func (svc *Service) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	err := svc.db.WithContext(ctx).
		Model(&model.GameGenre{}).
		Distinct("genre").
		Order("genre").
		Pluck("genre", &genres).Error
	return genres, err
}

// List returns catalog games, optionally filtered by genre.
func (svc *Service) List(ctx context.Context, genre string, limit int) ([]model.Game, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := svc.db.WithContext(ctx).Model(&model.Game{}).Order("games.id").Limit(limit)
	if genre != "" {
		q = q.Joins("JOIN game_genres ON game_genres.game_id = games.id").
			Where("game_genres.genre = ?", genre)
	}
	var games []model.Game
	err := q.Find(&games).Error
	return games, err
}
