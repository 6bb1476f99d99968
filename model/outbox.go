package model

import (
	"time"

	"gorm.io/datatypes"
)

// Event kinds written to the outbox.
const (
	EventQuestCompleted     = "quest_completed"
	EventAdventureCompleted = "adventure_completed"
)

// OutboxEvent is a completion event written in the same transaction as the
// progress state change. The unique index on (user_id, def_id, kind) is what
// guarantees at most one completion event per (user, definition) pair; the
// dispatcher delivers rows with a null delivered_at at least once.
type OutboxEvent struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64          `gorm:"uniqueIndex:idx_outbox_once;not null" json:"user_id"`
	DefID       string         `gorm:"uniqueIndex:idx_outbox_once;size:64;not null" json:"def_id"`
	Kind        string         `gorm:"uniqueIndex:idx_outbox_once;size:32;not null" json:"kind"`
	Payload     datatypes.JSON `json:"payload"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeliveredAt *time.Time     `gorm:"index:idx_outbox_pending" json:"delivered_at"`
}
