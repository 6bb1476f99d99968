package model

import "time"

// LibraryEntry records that a user owns a game.
type LibraryEntry struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"index:idx_lib_user;uniqueIndex:idx_lib_user_game;not null" json:"user_id"`
	GameID     int64     `gorm:"uniqueIndex:idx_lib_user_game;not null" json:"game_id"`
	AcquiredAt time.Time `gorm:"autoCreateTime" json:"acquired_at"`
}
