package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestSnapshot is the merged definition + progress view of one counting quest.
type QuestSnapshot struct {
	Definition   *Definition `json:"definition"`
	Started      bool        `json:"started"`
	CurrentCount int         `json:"current_count"`
	Completed    bool        `json:"completed"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// QuestService runs the counting-quest engine. Progress is always recomputed
// from the live library rather than incremented, so the counter can never
// drift from the owned set; completion is edge-triggered on the stored
// completed flag and therefore fires exactly once per (user, quest).
type QuestService struct {
	db      *gorm.DB
	catalog *Catalog
	library Ownership
	rewards RewardSink
	logger  *zap.Logger
}

// NewQuestService creates a QuestService.
func NewQuestService(db *gorm.DB, catalog *Catalog, library Ownership, rewards RewardSink, logger *zap.Logger) *QuestService {
	return &QuestService{db: db, catalog: catalog, library: library, rewards: rewards, logger: logger}
}

const recomputeAttempts = 3

// Recompute refreshes one quest's count from the user's library and fires
// the completion transition when the threshold is first crossed. Calling it
// again after completion updates the count but never re-fires; a count that
// later drops below the threshold does not revoke the completion.
func (svc *QuestService) Recompute(ctx context.Context, userID int64, questID string) (*QuestSnapshot, error) {
	def, err := svc.questDefinition(questID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < recomputeAttempts; attempt++ {
		snap, err := svc.recomputeOnce(ctx, userID, def)
		if errors.Is(err, errVersionConflict) {
			lastErr = err
			continue // a concurrent recompute won the race; rerun on fresh state
		}
		return snap, err
	}
	return nil, fmt.Errorf("gamification: recompute %q for user %d: %w", questID, userID, lastErr)
}

func (svc *QuestService) recomputeOnce(ctx context.Context, userID int64, def *Definition) (*QuestSnapshot, error) {
	live, err := svc.liveCount(ctx, userID, def)
	if err != nil {
		return nil, fmt.Errorf("gamification: ownership query: %w", err)
	}

	qp, err := svc.loadOrCreate(ctx, userID, def.ID)
	if err != nil {
		return nil, err
	}

	completing := live >= def.Target && !qp.Completed
	now := time.Now()

	txErr := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"current_count": live,
			"version":       qp.Version + 1,
		}
		if completing {
			updates["completed"] = true
			updates["completed_at"] = now
		}
		res := tx.Model(&model.QuestProgress{}).
			Where("id = ? AND version = ?", qp.ID, qp.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}
		if completing {
			return writeCompletionTx(tx, svc.rewards, userID, def, model.EventQuestCompleted,
				map[string]interface{}{
					"def_id": def.ID,
					"name":   def.Name,
					"points": def.Points,
					"count":  live,
				})
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if completing {
		svc.logger.Info("collection quest completed",
			zap.Int64("user_id", userID),
			zap.String("quest_id", def.ID),
			zap.Int("count", live))
	}

	snap := &QuestSnapshot{
		Definition:   def,
		Started:      true,
		CurrentCount: live,
		Completed:    qp.Completed || completing,
		StartedAt:    &qp.StartedAt,
		CompletedAt:  qp.CompletedAt,
	}
	if completing {
		snap.CompletedAt = &now
	}
	return snap, nil
}

// RecomputeAll refreshes every counting quest for the user. Called after
// library changes; failures on individual quests abort the sweep.
func (svc *QuestService) RecomputeAll(ctx context.Context, userID int64) ([]QuestSnapshot, error) {
	quests := svc.catalog.Quests()
	out := make([]QuestSnapshot, 0, len(quests))
	for _, def := range quests {
		snap, err := svc.Recompute(ctx, userID, def.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

// Status returns a read-only view of one quest. No record is created; an
// unstarted quest yields a zero-progress snapshot.
func (svc *QuestService) Status(ctx context.Context, userID int64, questID string) (*QuestSnapshot, error) {
	def, err := svc.questDefinition(questID)
	if err != nil {
		return nil, err
	}

	var qp model.QuestProgress
	err = svc.db.WithContext(ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		First(&qp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &QuestSnapshot{Definition: def}, nil
	}
	if err != nil {
		return nil, err
	}
	return &QuestSnapshot{
		Definition:   def,
		Started:      true,
		CurrentCount: qp.CurrentCount,
		Completed:    qp.Completed,
		StartedAt:    &qp.StartedAt,
		CompletedAt:  qp.CompletedAt,
	}, nil
}

// UserQuests returns a snapshot for every counting quest in catalog order.
func (svc *QuestService) UserQuests(ctx context.Context, userID int64) ([]QuestSnapshot, error) {
	var rows []model.QuestProgress
	if err := svc.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.QuestProgress, len(rows))
	for i := range rows {
		byID[rows[i].QuestID] = &rows[i]
	}

	quests := svc.catalog.Quests()
	out := make([]QuestSnapshot, 0, len(quests))
	for _, def := range quests {
		snap := QuestSnapshot{Definition: def}
		if qp, ok := byID[def.ID]; ok {
			snap.Started = true
			snap.CurrentCount = qp.CurrentCount
			snap.Completed = qp.Completed
			snap.StartedAt = &qp.StartedAt
			snap.CompletedAt = qp.CompletedAt
		}
		out = append(out, snap)
	}
	return out, nil
}

func (svc *QuestService) questDefinition(questID string) (*Definition, error) {
	def, err := svc.catalog.Definition(questID)
	if err != nil {
		return nil, err
	}
	if def.Kind != KindQuest {
		return nil, ErrDefinitionNotFound
	}
	return def, nil
}

func (svc *QuestService) liveCount(ctx context.Context, userID int64, def *Definition) (int, error) {
	if def.Genre == GenreMixed {
		return svc.library.DistinctGenreCount(ctx, userID)
	}
	return svc.library.OwnedCountByGenre(ctx, userID, def.Genre)
}

func (svc *QuestService) loadOrCreate(ctx context.Context, userID int64, questID string) (*model.QuestProgress, error) {
	var qp model.QuestProgress
	err := svc.db.WithContext(ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		First(&qp).Error
	if err == nil {
		return &qp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	qp = model.QuestProgress{UserID: userID, QuestID: questID}
	createErr := svc.db.WithContext(ctx).Create(&qp).Error
	if createErr == nil {
		return &qp, nil
	}
	if isUniqueViolation(createErr) {
		// Lost a creation race; the winner's row is the one to update.
		var existing model.QuestProgress
		if err := svc.db.WithContext(ctx).
			Where("user_id = ? AND quest_id = ?", userID, questID).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return nil, createErr
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
