package rewards

import (
	"context"
	"strconv"

	"github.com/zero-Zino/gamevault/cache"
	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const leaderboardKey = "rewards:leaderboard"

// Service owns the reward point ledger and the user balance derived from it.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewService creates a rewards Service.
func NewService(db *gorm.DB, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, logger: logger}
}

// AddPointsTx appends a ledger entry and bumps the user balance inside the
// caller's transaction. A failed transaction rolls both back together.
func (svc *Service) AddPointsTx(tx *gorm.DB, userID int64, points int, reason, refID string) error {
	entry := model.RewardEntry{
		UserID: userID,
		Points: points,
		Reason: reason,
		RefID:  refID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	return tx.Model(&model.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", points)).Error
}

// Balance returns the user's current point balance.
func (svc *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	var user model.User
	if err := svc.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Points, nil
}

// History returns the user's ledger entries, newest first.
func (svc *Service) History(ctx context.Context, userID int64, limit int) ([]model.RewardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []model.RewardEntry
	err := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// RankEntry is one leaderboard row.
type RankEntry struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
}

// RefreshLeaderboard rebuilds the cached points ranking from the users table.
// Run periodically from the scheduler; readers only touch the cache.
func (svc *Service) RefreshLeaderboard(ctx context.Context) error {
	var users []model.User
	err := svc.db.WithContext(ctx).
		Where("points > 0").
		Order("points DESC").
		Limit(200).
		Find(&users).Error
	if err != nil {
		return err
	}
	for i := range users {
		member := strconv.FormatInt(users[i].ID, 10)
		if err := svc.cache.ZAdd(ctx, leaderboardKey, float64(users[i].Points), member); err != nil {
			svc.logger.Warn("leaderboard cache write failed",
				zap.Int64("user_id", users[i].ID), zap.Error(err))
		}
	}
	return nil
}

// Top returns the highest-scoring users from the cached leaderboard.
func (svc *Service) Top(ctx context.Context, n int) ([]RankEntry, error) {
	if n <= 0 || n > 100 {
		n = 10
	}
	members, err := svc.cache.ZRevRange(ctx, leaderboardKey, 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]RankEntry, 0, len(members))
	for _, member := range members {
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		var user model.User
		if err := svc.db.WithContext(ctx).First(&user, userID).Error; err != nil {
			continue
		}
		out = append(out, RankEntry{UserID: user.ID, Username: user.Username, Points: user.Points})
	}
	return out, nil
}
