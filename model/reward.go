package model

import "time"

// RewardEntry is one row in the reward point ledger.
type RewardEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index:idx_reward_user;not null" json:"user_id"`
	Points    int       `gorm:"not null" json:"points"`
	Reason    string    `gorm:"size:64;not null" json:"reason"` // quest_completed | adventure_completed
	RefID     string    `gorm:"size:64" json:"ref_id"`          // definition id
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
