package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuestProgress tracks a user's progress on a counting collection quest.
// current_count is recomputed from the library on every check; completed
// is edge-triggered and never cleared once set.
type QuestProgress struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64      `gorm:"index:idx_quest_user;uniqueIndex:idx_quest_user_def;not null" json:"user_id"`
	QuestID      string     `gorm:"uniqueIndex:idx_quest_user_def;size:64;not null" json:"quest_id"`
	CurrentCount int        `gorm:"default:0" json:"current_count"`
	Completed    bool       `gorm:"default:false" json:"completed"`
	Version      int64      `gorm:"default:0" json:"-"` // optimistic concurrency guard
	StartedAt    time.Time  `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// AdventureProgress tracks a user's progress on a sequential discovery adventure.
// CurrentGameID is the game the user must play to advance; PlayedGameIDs holds
// every game already presented in this instance.
type AdventureProgress struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64          `gorm:"index:idx_adv_user;uniqueIndex:idx_adv_user_def;not null" json:"user_id"`
	AdventureID   string         `gorm:"uniqueIndex:idx_adv_user_def;size:64;not null" json:"adventure_id"`
	CurrentStep   int            `gorm:"default:0" json:"current_step"`
	CurrentGameID *int64         `json:"current_game_id"`
	PlayedGameIDs datatypes.JSON `json:"played_game_ids"` // [1, 2, ...]
	Completed     bool           `gorm:"default:false" json:"completed"`
	Version       int64          `gorm:"default:0" json:"-"` // optimistic concurrency guard
	StartedAt     time.Time      `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
}
