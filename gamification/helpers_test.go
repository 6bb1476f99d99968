package gamification_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/library"
	"github.com/zero-Zino/gamevault/model"
	"github.com/zero-Zino/gamevault/rewards"
	"github.com/zero-Zino/gamevault/store"
	"github.com/zero-Zino/gamevault/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db         *gorm.DB
	catalog    *gamification.Catalog
	library    *library.Service
	store      *store.Service
	rewards    *rewards.Service
	quests     *gamification.QuestService
	adventures *gamification.AdventureService
}

// newEnv wires real services onto an in-memory database. seed fixes the
// selector's random sequence.
func newEnv(t *testing.T, defs []gamification.Definition, seed int64) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	catalog, err := gamification.NewCatalog(defs)
	require.NoError(t, err)

	lib := library.NewService(db, logger)
	st := store.NewService(db, c, time.Minute, logger)
	rw := rewards.NewService(db, c, logger)
	sel := gamification.NewSelector(rand.NewSource(seed))

	return &testEnv{
		db:         db,
		catalog:    catalog,
		library:    lib,
		store:      st,
		rewards:    rw,
		quests:     gamification.NewQuestService(db, catalog, lib, rw, logger),
		adventures: gamification.NewAdventureService(db, catalog, lib, st, rw, sel, logger),
	}
}

func (env *testEnv) newUser(t *testing.T, username string) int64 {
	t.Helper()
	u := model.User{Username: username, PasswordHash: "x"}
	require.NoError(t, env.db.Create(&u).Error)
	return u.ID
}

func (env *testEnv) seedGame(t *testing.T, title string, genres ...string) int64 {
	t.Helper()
	g := model.Game{Title: title}
	require.NoError(t, env.db.Create(&g).Error)
	for _, genre := range genres {
		require.NoError(t, env.db.Create(&model.GameGenre{GameID: g.ID, Genre: genre}).Error)
	}
	return g.ID
}

func (env *testEnv) own(t *testing.T, userID, gameID int64) {
	t.Helper()
	require.NoError(t, env.library.Add(context.Background(), userID, gameID))
}

func (env *testEnv) outboxEvents(t *testing.T, userID int64, kind string) []model.OutboxEvent {
	t.Helper()
	var events []model.OutboxEvent
	require.NoError(t, env.db.
		Where("user_id = ? AND kind = ?", userID, kind).
		Find(&events).Error)
	return events
}
