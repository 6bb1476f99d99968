package gamification

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zero-Zino/gamevault/model"
	"github.com/zero-Zino/gamevault/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ownership answers owned-game queries for one user.
type Ownership interface {
	OwnedGameIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	OwnedCountByGenre(ctx context.Context, userID int64, genre string) (int, error)
	DistinctGenreCount(ctx context.Context, userID int64) (int, error)
}

// CatalogSearch lists store games by genre.
type CatalogSearch interface {
	GamesInGenre(ctx context.Context, genre string) ([]store.GameRef, error)
}

// RewardSink credits reward points inside the completing transaction, so a
// rollback of the state change also rolls back the reward.
type RewardSink interface {
	AddPointsTx(tx *gorm.DB, userID int64, points int, reason, refID string) error
}

// errVersionConflict signals that a guarded update lost a concurrent race.
// Never returned to callers; each operation translates or retries it.
var errVersionConflict = errors.New("gamification: concurrent modification")

// writeCompletionTx records the completion side effects in the surrounding
// transaction: one outbox event (unique per user/definition/kind) and the
// reward ledger credit.
func writeCompletionTx(tx *gorm.DB, rewards RewardSink, userID int64, def *Definition, kind string, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := &model.OutboxEvent{
		UserID:  userID,
		DefID:   def.ID,
		Kind:    kind,
		Payload: datatypes.JSON(raw),
	}
	if err := tx.Create(event).Error; err != nil {
		return err
	}
	return rewards.AddPointsTx(tx, userID, def.Points, kind, def.ID)
}
