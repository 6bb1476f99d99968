package library

import (
	"context"
	"strings"

	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the user → owned-games relation.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a library Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// OwnedGameIDs returns the set of game ids the user owns.
func (svc *Service) OwnedGameIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	var ids []int64
	err := svc.db.WithContext(ctx).
		Model(&model.LibraryEntry{}).
		Where("user_id = ?", userID).
		Pluck("game_id", &ids).Error
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

// OwnedCountByGenre counts the user's owned games tagged with the genre.
func (svc *Service) OwnedCountByGenre(ctx context.Context, userID int64, genre string) (int, error) {
	var count int64
	err := svc.db.WithContext(ctx).
		Model(&model.LibraryEntry{}).
		Joins("JOIN game_genres ON game_genres.game_id = library_entries.game_id").
		Where("library_entries.user_id = ? AND game_genres.genre = ?", userID, genre).
		Count(&count).Error
	return int(count), err
}

// DistinctGenreCount counts how many different genres appear in the user's library.
func (svc *Service) DistinctGenreCount(ctx context.Context, userID int64) (int, error) {
	var count int64
	err := svc.db.WithContext(ctx).
		Model(&model.LibraryEntry{}).
		Joins("JOIN game_genres ON game_genres.game_id = library_entries.game_id").
		Where("library_entries.user_id = ?", userID).
		Distinct("game_genres.genre").
		Count(&count).Error
	return int(count), err
}

// Add records ownership of a game. Adding a game twice is a no-op.
func (svc *Service) Add(ctx context.Context, userID, gameID int64) error {
	var game model.Game
	if err := svc.db.WithContext(ctx).First(&game, gameID).Error; err != nil {
		return err
	}
	err := svc.db.WithContext(ctx).
		Create(&model.LibraryEntry{UserID: userID, GameID: gameID}).Error
	if err != nil && isUniqueViolation(err) {
		return nil // already owned
	}
	return err
}

// List returns the user's library entries, newest first.
func (svc *Service) List(ctx context.Context, userID int64) ([]model.LibraryEntry, error) {
	var entries []model.LibraryEntry
	err := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("acquired_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
