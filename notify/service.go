package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zero-Zino/gamevault/cache"
	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserChannel is the pub/sub channel for one user's live notifications.
func UserChannel(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Service persists notifications and pushes them to connected clients over
// pub/sub. Persistence is authoritative; the live push is best effort.
type Service struct {
	db     *gorm.DB
	pubsub cache.PubSub
	logger *zap.Logger
}

// NewService creates a notify Service.
func NewService(db *gorm.DB, ps cache.PubSub, logger *zap.Logger) *Service {
	return &Service{db: db, pubsub: ps, logger: logger}
}

// Send stores a notification and publishes it on the user's channel.
func (svc *Service) Send(ctx context.Context, userID int64, kind, title, message string) error {
	n := model.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if err := svc.db.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}

	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := svc.pubsub.Publish(ctx, UserChannel(userID), string(raw)); err != nil {
		// The row is stored; the client catches up on its next list call.
		svc.logger.Warn("notification publish failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// List returns the user's notifications, newest first.
func (svc *Service) List(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []model.Notification
	err := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UnreadCount returns the number of unread notifications.
func (svc *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := svc.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the user's notifications as read.
func (svc *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return svc.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true).Error
}

// MarkAllRead marks every unread notification of the user as read.
func (svc *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return svc.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}
