package gamification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationSink receives completion notifications fanned out by the
// dispatcher.
type NotificationSink interface {
	Send(ctx context.Context, userID int64, kind, title, message string) error
}

// Dispatcher drains undelivered completion events from the outbox table and
// turns them into user notifications. Rows are written transactionally with
// the progress update, so delivery here is at-least-once: a row that fails to
// send stays undelivered and is retried on the next tick.
type Dispatcher struct {
	db      *gorm.DB
	catalog *Catalog
	sink    NotificationSink
	logger  *zap.Logger
	batch   int
}

// NewDispatcher creates a Dispatcher draining up to batch rows per tick.
func NewDispatcher(db *gorm.DB, catalog *Catalog, sink NotificationSink, logger *zap.Logger, batch int) *Dispatcher {
	if batch <= 0 {
		batch = 100
	}
	return &Dispatcher{db: db, catalog: catalog, sink: sink, logger: logger, batch: batch}
}

// Dispatch delivers one batch of pending events. It keeps going past
// individual delivery failures so one bad row cannot wedge the queue.
func (d *Dispatcher) Dispatch(ctx context.Context) error {
	var pending []model.OutboxEvent
	err := d.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("id").
		Limit(d.batch).
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("gamification: outbox scan: %w", err)
	}

	for i := range pending {
		ev := &pending[i]
		if err := d.deliver(ctx, ev); err != nil {
			d.logger.Warn("outbox delivery failed",
				zap.Int64("event_id", ev.ID),
				zap.Int64("user_id", ev.UserID),
				zap.String("def_id", ev.DefID),
				zap.Error(err))
			continue
		}
		now := time.Now()
		if err := d.db.WithContext(ctx).Model(ev).Update("delivered_at", now).Error; err != nil {
			d.logger.Warn("outbox mark delivered failed",
				zap.Int64("event_id", ev.ID), zap.Error(err))
		}
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev *model.OutboxEvent) error {
	title, message := d.render(ev)
	return d.sink.Send(ctx, ev.UserID, ev.Kind, title, message)
}

func (d *Dispatcher) render(ev *model.OutboxEvent) (string, string) {
	name := ev.DefID
	points := 0
	if def, err := d.catalog.Definition(ev.DefID); err == nil {
		name = def.Name
		points = def.Points
	}
	var payload struct {
		Name   string `json:"name"`
		Points int    `json:"points"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err == nil {
		if payload.Name != "" {
			name = payload.Name
		}
		if payload.Points != 0 {
			points = payload.Points
		}
	}

	switch ev.Kind {
	case model.EventAdventureCompleted:
		return "Adventure complete!",
			fmt.Sprintf("You finished %q and earned %d points.", name, points)
	default:
		return "Quest complete!",
			fmt.Sprintf("You completed %q and earned %d points.", name, points)
	}
}
