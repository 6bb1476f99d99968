package gamification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type recordingSink struct {
	sent   []string
	failOn map[string]bool
}

func (s *recordingSink) Send(_ context.Context, _ int64, _ string, title, _ string) error {
	if s.failOn != nil && s.failOn[title] {
		return errors.New("sink down")
	}
	s.sent = append(s.sent, title)
	return nil
}

func seedEvent(t *testing.T, env *testEnv, userID int64, defID, kind string) {
	t.Helper()
	require.NoError(t, env.db.Create(&model.OutboxEvent{
		UserID:  userID,
		DefID:   defID,
		Kind:    kind,
		Payload: datatypes.JSON([]byte(`{"name":"Indie Gems","points":30}`)),
	}).Error)
}

func TestDispatcherDeliversAndMarks(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	seedEvent(t, env, user, "indie_gems", model.EventQuestCompleted)
	seedEvent(t, env, user, "indie_run", model.EventAdventureCompleted)

	sink := &recordingSink{}
	d := gamification.NewDispatcher(env.db, env.catalog, sink, zap.NewNop(), 10)
	require.NoError(t, d.Dispatch(ctx))

	require.Len(t, sink.sent, 2)
	assert.Equal(t, "Quest complete!", sink.sent[0])
	assert.Equal(t, "Adventure complete!", sink.sent[1])

	var pending int64
	require.NoError(t, env.db.Model(&model.OutboxEvent{}).
		Where("delivered_at IS NULL").Count(&pending).Error)
	assert.Zero(t, pending)

	// A second tick finds nothing to deliver.
	require.NoError(t, d.Dispatch(ctx))
	assert.Len(t, sink.sent, 2)
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	seedEvent(t, env, user, "indie_gems", model.EventQuestCompleted)

	sink := &recordingSink{failOn: map[string]bool{"Quest complete!": true}}
	d := gamification.NewDispatcher(env.db, env.catalog, sink, zap.NewNop(), 10)
	require.NoError(t, d.Dispatch(ctx))
	assert.Empty(t, sink.sent)

	var pending int64
	require.NoError(t, env.db.Model(&model.OutboxEvent{}).
		Where("delivered_at IS NULL").Count(&pending).Error)
	assert.Equal(t, int64(1), pending, "failed row stays pending")

	// The sink recovers; the next tick delivers the same row.
	sink.failOn = nil
	require.NoError(t, d.Dispatch(ctx))
	assert.Len(t, sink.sent, 1)
}
