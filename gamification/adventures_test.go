package gamification_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/model"
)

var advDefs = []gamification.Definition{
	{ID: "indie_run", Kind: gamification.KindAdventure, Name: "Indie Run",
		Genre: "indie", Target: 3, Points: 40},
	{ID: "indie_gems", Kind: gamification.KindQuest, Name: "Indie Gems",
		Genre: "indie", Target: 5, Points: 30},
}

func TestAdventureStart(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	g1 := env.seedGame(t, "a", "indie")
	g2 := env.seedGame(t, "b", "indie")

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentStep)
	require.NotNil(t, snap.CurrentGame)
	assert.Contains(t, []int64{g1, g2}, snap.CurrentGame.ID)
	assert.Empty(t, snap.PlayedGameIDs)

	_, err = env.adventures.Start(ctx, user, "indie_run")
	assert.ErrorIs(t, err, gamification.ErrAlreadyStarted)
}

func TestAdventureStartNoEligibleGames(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	// The whole genre pool is already owned.
	env.own(t, user, env.seedGame(t, "a", "indie"))
	env.own(t, user, env.seedGame(t, "b", "indie"))

	_, err := env.adventures.Start(ctx, user, "indie_run")
	assert.ErrorIs(t, err, gamification.ErrNoEligibleGames)
}

func TestAdventureFullRun(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	for _, title := range []string{"a", "b", "c"} {
		env.seedGame(t, title, "indie")
	}

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)

	for step := 1; step < 3; step++ {
		require.Equal(t, step, snap.CurrentStep)
		require.NotNil(t, snap.CurrentGame)
		snap, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
		require.NoError(t, err)
		assert.NotContains(t, snap.PlayedGameIDs, activeID(snap),
			"fresh pool: active game must not be in the played list")
	}

	// Final step completes the run.
	require.NotNil(t, snap.CurrentGame)
	snap, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
	require.NoError(t, err)
	assert.True(t, snap.Completed)
	assert.Nil(t, snap.CurrentGame)
	assert.Len(t, snap.PlayedGameIDs, 3)

	events := env.outboxEvents(t, user, model.EventAdventureCompleted)
	require.Len(t, events, 1)
	assert.Equal(t, "indie_run", events[0].DefID)

	balance, err := env.rewards.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	_, err = env.adventures.Progress(ctx, user, "indie_run", 1)
	assert.ErrorIs(t, err, gamification.ErrAlreadyCompleted)
}

func TestAdventureSmallPoolReoffersPlayedGame(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	// Pool of 2 unowned games, step count 3: the third step must re-offer
	// an already-played game instead of stalling.
	env.seedGame(t, "a", "indie")
	env.seedGame(t, "b", "indie")

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)

	snap, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
	require.NoError(t, err)
	require.Equal(t, 2, snap.CurrentStep)
	require.NotNil(t, snap.CurrentGame, "second fresh game offered")

	snap, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
	require.NoError(t, err)
	require.False(t, snap.Completed, "tier 2 keeps the run alive")
	require.Equal(t, 3, snap.CurrentStep)
	require.NotNil(t, snap.CurrentGame)
	assert.Contains(t, snap.PlayedGameIDs, snap.CurrentGame.ID, "re-offered game was played before")

	snap, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
	require.NoError(t, err)
	assert.True(t, snap.Completed)
}

func TestAdventureAutoCompletesOnExhaustion(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	g1 := env.seedGame(t, "a", "indie")
	g2 := env.seedGame(t, "b", "indie")

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)
	require.Equal(t, 1, snap.CurrentStep)

	// The user buys the whole pool mid-run; the next progress finds no
	// eligible game at any tier and the instance completes early.
	env.own(t, user, g1)
	env.own(t, user, g2)

	snap, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
	require.NoError(t, err)
	assert.True(t, snap.Completed, "must complete rather than stall")
	assert.Equal(t, 1, snap.CurrentStep)

	events := env.outboxEvents(t, user, model.EventAdventureCompleted)
	require.Len(t, events, 1)
	balance, err := env.rewards.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance, "early completion pays the full reward")
}

func TestAdventureProgressWrongGame(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	g1 := env.seedGame(t, "a", "indie")
	g2 := env.seedGame(t, "b", "indie")

	_, err := env.adventures.Progress(ctx, user, "indie_run", g1)
	assert.ErrorIs(t, err, gamification.ErrProgressNotFound)

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)

	wrong := g1
	if snap.CurrentGame.ID == g1 {
		wrong = g2
	}
	_, err = env.adventures.Progress(ctx, user, "indie_run", wrong)
	assert.ErrorIs(t, err, gamification.ErrWrongGame)

	// The instance is untouched and the correct game still advances it.
	after, err := env.adventures.Status(ctx, user, "indie_run")
	require.NoError(t, err)
	assert.Equal(t, 1, after.CurrentStep)

	_, err = env.adventures.Progress(ctx, user, "indie_run", snap.CurrentGame.ID)
	require.NoError(t, err)
}

func TestAdventureSkip(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	g1 := env.seedGame(t, "a", "indie")
	g2 := env.seedGame(t, "b", "indie")

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)
	first := snap.CurrentGame.ID

	snap, err = env.adventures.Skip(ctx, user, "indie_run")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentStep, "skip keeps the step")
	require.NotNil(t, snap.CurrentGame)
	assert.NotEqual(t, first, snap.CurrentGame.ID)
	assert.Contains(t, []int64{g1, g2}, snap.CurrentGame.ID)
}

func TestAdventureSkipNoAlternative(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	env.seedGame(t, "a", "indie")

	snap, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)
	active := snap.CurrentGame.ID

	_, err = env.adventures.Skip(ctx, user, "indie_run")
	assert.ErrorIs(t, err, gamification.ErrNoAlternative)

	// State is unchanged.
	after, err := env.adventures.Status(ctx, user, "indie_run")
	require.NoError(t, err)
	require.NotNil(t, after.CurrentGame)
	assert.Equal(t, active, after.CurrentGame.ID)
	assert.Equal(t, 1, after.CurrentStep)
}

func TestAdventureStatusAndUserAdventures(t *testing.T) {
	env := newEnv(t, advDefs, 1)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	env.seedGame(t, "a", "indie")

	snap, err := env.adventures.Status(ctx, user, "indie_run")
	require.NoError(t, err)
	assert.False(t, snap.Started)
	assert.Zero(t, snap.CurrentStep)

	_, err = env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)

	all, err := env.adventures.UserAdventures(ctx, user)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Started)
	assert.Equal(t, 1, all[0].CurrentStep)
	require.NotNil(t, all[0].CurrentGame)

	// A quest id is not a valid adventure id.
	_, err = env.adventures.Status(ctx, user, "indie_gems")
	assert.ErrorIs(t, err, gamification.ErrDefinitionNotFound)
}

func activeID(snap *gamification.AdventureSnapshot) int64 {
	if snap.CurrentGame == nil {
		return 0
	}
	return snap.CurrentGame.ID
}

func TestAdventureProgressConcurrentAdvancesOnce(t *testing.T) {
	env := newEnv(t, advDefs, 3)
	ctx := context.Background()
	user := env.newUser(t, "alice")

	for _, title := range []string{"a", "b", "c", "d"} {
		env.seedGame(t, title, "indie")
	}

	started, err := env.adventures.Start(ctx, user, "indie_run")
	require.NoError(t, err)
	active := activeID(started)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.adventures.Progress(ctx, user, "indie_run", active)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		// Losers observe the winner's write: the active game has moved on.
		assert.True(t,
			errors.Is(err, gamification.ErrWrongGame) || errors.Is(err, gamification.ErrAlreadyCompleted),
			"unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins, "only one progress call may advance the step")

	snap, err := env.adventures.Status(ctx, user, "indie_run")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentStep)
	assert.False(t, snap.Completed)
	assert.Equal(t, []int64{active}, snap.PlayedGameIDs)
	assert.NotEqual(t, active, activeID(snap))
}
