package gamification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/model"
)

var questDefs = []gamification.Definition{
	{ID: "indie_gems", Kind: gamification.KindQuest, Name: "Indie Gems",
		Genre: "indie", Target: 5, Points: 30},
	{ID: "connoisseur", Kind: gamification.KindQuest, Name: "Connoisseur",
		Genre: gamification.GenreMixed, Target: 3, Points: 50},
	{ID: "indie_run", Kind: gamification.KindAdventure, Name: "Indie Run",
		Genre: "indie", Target: 3, Points: 40},
}

func TestQuestRecomputeThreshold(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	ids := make([]int64, 0, 5)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, env.seedGame(t, title, "indie"))
	}

	// 3 of 5 owned: in progress, not complete.
	for _, id := range ids[:3] {
		env.own(t, user, id)
	}
	snap, err := env.quests.Recompute(ctx, user, "indie_gems")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.CurrentCount)
	assert.False(t, snap.Completed)
	assert.Empty(t, env.outboxEvents(t, user, model.EventQuestCompleted))

	// Crossing the threshold completes and emits exactly one event.
	for _, id := range ids[3:] {
		env.own(t, user, id)
	}
	snap, err = env.quests.Recompute(ctx, user, "indie_gems")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.CurrentCount)
	assert.True(t, snap.Completed)
	require.NotNil(t, snap.CompletedAt)

	events := env.outboxEvents(t, user, model.EventQuestCompleted)
	require.Len(t, events, 1)
	assert.Equal(t, "indie_gems", events[0].DefID)

	balance, err := env.rewards.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestQuestCompletionFiresOnce(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		env.own(t, user, env.seedGame(t, title, "indie"))
	}

	for i := 0; i < 4; i++ {
		snap, err := env.quests.Recompute(ctx, user, "indie_gems")
		require.NoError(t, err)
		assert.True(t, snap.Completed)
	}

	assert.Len(t, env.outboxEvents(t, user, model.EventQuestCompleted), 1)
	balance, err := env.rewards.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance, "reward credited once")
}

func TestQuestCompletionIsMonotone(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	var ids []int64
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		id := env.seedGame(t, title, "indie")
		ids = append(ids, id)
		env.own(t, user, id)
	}
	snap, err := env.quests.Recompute(ctx, user, "indie_gems")
	require.NoError(t, err)
	require.True(t, snap.Completed)

	// Removing games drops the count but never the completed flag.
	require.NoError(t, env.db.
		Where("user_id = ? AND game_id IN ?", user, ids[2:]).
		Delete(&model.LibraryEntry{}).Error)

	snap, err = env.quests.Recompute(ctx, user, "indie_gems")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentCount)
	assert.True(t, snap.Completed)
}

func TestQuestDiversityCountsDistinctGenres(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	// Two indie games are one genre; the diversity quest needs three genres.
	env.own(t, user, env.seedGame(t, "a", "indie"))
	env.own(t, user, env.seedGame(t, "b", "indie"))
	snap, err := env.quests.Recompute(ctx, user, "connoisseur")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentCount)

	env.own(t, user, env.seedGame(t, "c", "rpg"))
	env.own(t, user, env.seedGame(t, "d", "horror"))
	snap, err = env.quests.Recompute(ctx, user, "connoisseur")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.CurrentCount)
	assert.True(t, snap.Completed)
}

func TestQuestStatusDoesNotCreateRecord(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	snap, err := env.quests.Status(ctx, user, "indie_gems")
	require.NoError(t, err)
	assert.False(t, snap.Started)
	assert.Equal(t, 0, snap.CurrentCount)

	var count int64
	require.NoError(t, env.db.Model(&model.QuestProgress{}).
		Where("user_id = ?", user).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuestUnknownDefinition(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	_, err := env.quests.Recompute(ctx, user, "nope")
	assert.ErrorIs(t, err, gamification.ErrDefinitionNotFound)

	// An adventure id is not a valid quest id.
	_, err = env.quests.Recompute(ctx, user, "indie_run")
	assert.ErrorIs(t, err, gamification.ErrDefinitionNotFound)
}

func TestQuestRecomputeAllAndUserQuests(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	env.own(t, user, env.seedGame(t, "a", "indie"))

	snaps, err := env.quests.RecomputeAll(ctx, user)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "indie_gems", snaps[0].Definition.ID)
	assert.Equal(t, 1, snaps[0].CurrentCount)
	assert.Equal(t, "connoisseur", snaps[1].Definition.ID)
	assert.Equal(t, 1, snaps[1].CurrentCount)

	views, err := env.quests.UserQuests(ctx, user)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Started)
}

func TestQuestRecomputeConcurrentCompletesOnce(t *testing.T) {
	env := newEnv(t, questDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		env.own(t, user, env.seedGame(t, title, "indie"))
	}

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.quests.Recompute(ctx, user, "indie_gems")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Positive(t, succeeded, "at least one recompute must win the race")

	// The version guard plus the unique outbox index keep the completion
	// transition to a single winner.
	events := env.outboxEvents(t, user, model.EventQuestCompleted)
	assert.Len(t, events, 1)

	var entries []model.RewardEntry
	require.NoError(t, env.db.Where("user_id = ?", user).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 30, entries[0].Points)

	snap, err := env.quests.Status(ctx, user, "indie_gems")
	require.NoError(t, err)
	assert.True(t, snap.Completed)
}
