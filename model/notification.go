package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a persisted user notification, also pushed live over SSE.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index:idx_notif_user;not null" json:"user_id"`
	Title     string         `gorm:"size:128;not null" json:"title"`
	Message   string         `gorm:"size:512" json:"message"`
	Type      string         `gorm:"size:64" json:"type"`
	Data      datatypes.JSON `json:"data"`
	Read      bool           `gorm:"default:false" json:"read"`
	CreatedAt time.Time      `gorm:"index:idx_notif_created;autoCreateTime" json:"created_at"`
}
