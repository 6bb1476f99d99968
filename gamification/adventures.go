package gamification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zero-Zino/gamevault/model"
	"github.com/zero-Zino/gamevault/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdventureSnapshot is the merged definition + progress view of one adventure.
type AdventureSnapshot struct {
	Definition    *Definition    `json:"definition"`
	Started       bool           `json:"started"`
	CurrentStep   int            `json:"current_step"`
	Completed     bool           `json:"completed"`
	PlayedGameIDs []int64        `json:"played_game_ids"`
	CurrentGame   *store.GameRef `json:"current_game,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// AdventureService runs the sequential discovery-adventure engine. Each step
// presents one selected game; playing it advances the step, and the selector's
// tiered policy keeps the run alive while the genre pool shrinks. When the
// pool is exhausted mid-run the instance completes early instead of stalling.
type AdventureService struct {
	db       *gorm.DB
	catalog  *Catalog
	library  Ownership
	search   CatalogSearch
	rewards  RewardSink
	selector *Selector
	logger   *zap.Logger
}

// NewAdventureService creates an AdventureService.
func NewAdventureService(db *gorm.DB, catalog *Catalog, library Ownership, search CatalogSearch,
	rewards RewardSink, selector *Selector, logger *zap.Logger) *AdventureService {
	return &AdventureService{
		db: db, catalog: catalog, library: library, search: search,
		rewards: rewards, selector: selector, logger: logger,
	}
}

// Start begins an adventure at step 1 with a freshly selected game.
func (svc *AdventureService) Start(ctx context.Context, userID int64, adventureID string) (*AdventureSnapshot, error) {
	def, err := svc.adventureDefinition(adventureID)
	if err != nil {
		return nil, err
	}

	var existing model.AdventureProgress
	err = svc.db.WithContext(ctx).
		Where("user_id = ? AND adventure_id = ?", userID, adventureID).
		First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyStarted
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	first, err := svc.selectNext(ctx, userID, def, nil, 0)
	if errors.Is(err, ErrExhausted) {
		return nil, ErrNoEligibleGames
	}
	if err != nil {
		return nil, err
	}

	ap := model.AdventureProgress{
		UserID:        userID,
		AdventureID:   adventureID,
		CurrentStep:   1,
		CurrentGameID: &first.ID,
		PlayedGameIDs: datatypes.JSON([]byte("[]")),
	}
	if createErr := svc.db.WithContext(ctx).Create(&ap).Error; createErr != nil {
		if isUniqueViolation(createErr) {
			return nil, ErrAlreadyStarted
		}
		return nil, createErr
	}

	svc.logger.Info("adventure started",
		zap.Int64("user_id", userID),
		zap.String("adventure_id", adventureID),
		zap.Int64("first_game_id", first.ID))

	return &AdventureSnapshot{
		Definition:    def,
		Started:       true,
		CurrentStep:   1,
		PlayedGameIDs: []int64{},
		CurrentGame:   &first,
		StartedAt:     &ap.StartedAt,
	}, nil
}

// Progress submits the active game as played. On the final step the instance
// completes; otherwise the step advances and the next game is selected. If
// selection is exhausted mid-run the instance completes early rather than
// deadlocking with no playable next step.
func (svc *AdventureService) Progress(ctx context.Context, userID int64, adventureID string, gameID int64) (*AdventureSnapshot, error) {
	def, err := svc.adventureDefinition(adventureID)
	if err != nil {
		return nil, err
	}

	ap, err := svc.load(ctx, userID, adventureID)
	if err != nil {
		return nil, err
	}
	if ap.Completed {
		return nil, ErrAlreadyCompleted
	}
	if ap.CurrentGameID == nil || *ap.CurrentGameID != gameID {
		return nil, ErrWrongGame
	}

	played, err := decodePlayed(ap.PlayedGameIDs)
	if err != nil {
		return nil, fmt.Errorf("gamification: corrupt played list for user %d adventure %q: %w", userID, adventureID, err)
	}
	played = append(played, gameID)

	finishing := ap.CurrentStep >= def.Target
	var next *store.GameRef
	if !finishing {
		g, selErr := svc.selectNext(ctx, userID, def, played, 0)
		switch {
		case errors.Is(selErr, ErrExhausted):
			// The genre has nothing left to offer; finish early.
			finishing = true
		case selErr != nil:
			return nil, selErr
		default:
			next = &g
		}
	}

	now := time.Now()
	playedJSON, err := encodePlayed(played)
	if err != nil {
		return nil, err
	}

	txErr := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"played_game_ids": playedJSON,
			"version":         ap.Version + 1,
		}
		if finishing {
			updates["completed"] = true
			updates["completed_at"] = now
			updates["current_game_id"] = nil
		} else {
			updates["current_step"] = ap.CurrentStep + 1
			updates["current_game_id"] = next.ID
		}
		res := tx.Model(&model.AdventureProgress{}).
			Where("id = ? AND version = ?", ap.ID, ap.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}
		if finishing {
			return writeCompletionTx(tx, svc.rewards, userID, def, model.EventAdventureCompleted,
				map[string]interface{}{
					"def_id":       def.ID,
					"name":         def.Name,
					"points":       def.Points,
					"step_reached": ap.CurrentStep,
				})
		}
		return nil
	})
	if errors.Is(txErr, errVersionConflict) {
		// Someone advanced or completed this instance first; re-read and
		// report what the submitted game now violates.
		return nil, svc.conflictError(ctx, userID, adventureID)
	}
	if txErr != nil {
		return nil, txErr
	}

	snap := &AdventureSnapshot{
		Definition:    def,
		Started:       true,
		PlayedGameIDs: played,
		StartedAt:     &ap.StartedAt,
	}
	if finishing {
		snap.CurrentStep = ap.CurrentStep
		snap.Completed = true
		snap.CompletedAt = &now
		svc.logger.Info("adventure completed",
			zap.Int64("user_id", userID),
			zap.String("adventure_id", adventureID),
			zap.Int("step_reached", ap.CurrentStep),
			zap.Int("step_count", def.Target))
	} else {
		snap.CurrentStep = ap.CurrentStep + 1
		snap.CurrentGame = next
	}
	return snap, nil
}

const skipAttempts = 2

// Skip replaces the active game with another selection, additionally
// excluding the skipped game. Unlike Progress, exhaustion here is an error:
// the user asked to avoid a game, not to finish the adventure.
func (svc *AdventureService) Skip(ctx context.Context, userID int64, adventureID string) (*AdventureSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt < skipAttempts; attempt++ {
		snap, err := svc.skipOnce(ctx, userID, adventureID)
		if errors.Is(err, errVersionConflict) {
			lastErr = err
			continue
		}
		return snap, err
	}
	return nil, fmt.Errorf("gamification: skip %q for user %d: %w", adventureID, userID, lastErr)
}

func (svc *AdventureService) skipOnce(ctx context.Context, userID int64, adventureID string) (*AdventureSnapshot, error) {
	def, err := svc.adventureDefinition(adventureID)
	if err != nil {
		return nil, err
	}

	ap, err := svc.load(ctx, userID, adventureID)
	if err != nil {
		return nil, err
	}
	if ap.Completed {
		return nil, ErrAlreadyCompleted
	}
	if ap.CurrentGameID == nil {
		return nil, ErrProgressNotFound
	}

	played, err := decodePlayed(ap.PlayedGameIDs)
	if err != nil {
		return nil, fmt.Errorf("gamification: corrupt played list for user %d adventure %q: %w", userID, adventureID, err)
	}

	replacement, err := svc.selectNext(ctx, userID, def, played, *ap.CurrentGameID)
	if errors.Is(err, ErrExhausted) {
		return nil, ErrNoAlternative
	}
	if err != nil {
		return nil, err
	}

	res := svc.db.WithContext(ctx).Model(&model.AdventureProgress{}).
		Where("id = ? AND version = ?", ap.ID, ap.Version).
		Updates(map[string]interface{}{
			"current_game_id": replacement.ID,
			"version":         ap.Version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errVersionConflict
	}

	return &AdventureSnapshot{
		Definition:    def,
		Started:       true,
		CurrentStep:   ap.CurrentStep,
		PlayedGameIDs: played,
		CurrentGame:   &replacement,
		StartedAt:     &ap.StartedAt,
	}, nil
}

// Status returns a read-only view of one adventure; unstarted adventures
// yield a zero-progress snapshot without creating a record.
func (svc *AdventureService) Status(ctx context.Context, userID int64, adventureID string) (*AdventureSnapshot, error) {
	def, err := svc.adventureDefinition(adventureID)
	if err != nil {
		return nil, err
	}

	ap, err := svc.load(ctx, userID, adventureID)
	if errors.Is(err, ErrProgressNotFound) {
		return &AdventureSnapshot{Definition: def, PlayedGameIDs: []int64{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return svc.snapshot(ctx, def, ap)
}

// UserAdventures returns a snapshot for every adventure in catalog order.
func (svc *AdventureService) UserAdventures(ctx context.Context, userID int64) ([]AdventureSnapshot, error) {
	var rows []model.AdventureProgress
	if err := svc.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.AdventureProgress, len(rows))
	for i := range rows {
		byID[rows[i].AdventureID] = &rows[i]
	}

	adventures := svc.catalog.Adventures()
	out := make([]AdventureSnapshot, 0, len(adventures))
	for _, def := range adventures {
		if ap, ok := byID[def.ID]; ok {
			snap, err := svc.snapshot(ctx, def, ap)
			if err != nil {
				return nil, err
			}
			out = append(out, *snap)
			continue
		}
		out = append(out, AdventureSnapshot{Definition: def, PlayedGameIDs: []int64{}})
	}
	return out, nil
}

func (svc *AdventureService) adventureDefinition(adventureID string) (*Definition, error) {
	def, err := svc.catalog.Definition(adventureID)
	if err != nil {
		return nil, err
	}
	if def.Kind != KindAdventure {
		return nil, ErrDefinitionNotFound
	}
	return def, nil
}

func (svc *AdventureService) load(ctx context.Context, userID int64, adventureID string) (*model.AdventureProgress, error) {
	var ap model.AdventureProgress
	err := svc.db.WithContext(ctx).
		Where("user_id = ? AND adventure_id = ?", userID, adventureID).
		First(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

// selectNext runs the selector against the fresh genre pool and owned set.
func (svc *AdventureService) selectNext(ctx context.Context, userID int64, def *Definition, played []int64, exclude int64) (store.GameRef, error) {
	owned, err := svc.library.OwnedGameIDs(ctx, userID)
	if err != nil {
		return store.GameRef{}, fmt.Errorf("gamification: ownership query: %w", err)
	}
	pool, err := svc.search.GamesInGenre(ctx, def.Genre)
	if err != nil {
		return store.GameRef{}, fmt.Errorf("gamification: catalog query: %w", err)
	}
	playedSet := make(map[int64]bool, len(played))
	for _, id := range played {
		playedSet[id] = true
	}
	return svc.selector.Pick(pool, owned, playedSet, exclude)
}

// conflictError re-reads the instance after a lost race and maps the new
// state onto the caller-visible conflict.
func (svc *AdventureService) conflictError(ctx context.Context, userID int64, adventureID string) error {
	ap, err := svc.load(ctx, userID, adventureID)
	if err != nil {
		return err
	}
	if ap.Completed {
		return ErrAlreadyCompleted
	}
	return ErrWrongGame
}

func (svc *AdventureService) snapshot(ctx context.Context, def *Definition, ap *model.AdventureProgress) (*AdventureSnapshot, error) {
	played, err := decodePlayed(ap.PlayedGameIDs)
	if err != nil {
		return nil, fmt.Errorf("gamification: corrupt played list for adventure %q: %w", def.ID, err)
	}
	snap := &AdventureSnapshot{
		Definition:    def,
		Started:       true,
		CurrentStep:   ap.CurrentStep,
		Completed:     ap.Completed,
		PlayedGameIDs: played,
		StartedAt:     &ap.StartedAt,
		CompletedAt:   ap.CompletedAt,
	}
	if ap.CurrentGameID != nil {
		// The active game is always a member of the definition's genre pool.
		pool, err := svc.search.GamesInGenre(ctx, def.Genre)
		if err != nil {
			return nil, err
		}
		for i := range pool {
			if pool[i].ID == *ap.CurrentGameID {
				snap.CurrentGame = &pool[i]
				break
			}
		}
	}
	return snap, nil
}

func decodePlayed(raw datatypes.JSON) ([]int64, error) {
	if len(raw) == 0 {
		return []int64{}, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func encodePlayed(ids []int64) (datatypes.JSON, error) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
