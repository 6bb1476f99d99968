package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/zero-Zino/gamevault/api/rest"
	"github.com/zero-Zino/gamevault/api/sse"
	"github.com/zero-Zino/gamevault/audit"
	"github.com/zero-Zino/gamevault/cache"
	"github.com/zero-Zino/gamevault/config"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/library"
	mw "github.com/zero-Zino/gamevault/middleware"
	"github.com/zero-Zino/gamevault/model"
	"github.com/zero-Zino/gamevault/notify"
	"github.com/zero-Zino/gamevault/rewards"
	"github.com/zero-Zino/gamevault/scheduler"
	"github.com/zero-Zino/gamevault/store"
	"github.com/zero-Zino/gamevault/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDefs = []gamification.Definition{
	{ID: "indie_gems", Kind: gamification.KindQuest, Name: "Indie Gems",
		Genre: "indie", Target: 2, Points: 30},
	{ID: "indie_run", Kind: gamification.KindAdventure, Name: "Indie Run",
		Genre: "indie", Target: 2, Points: 40},
}

type testServer struct {
	r          *gin.Engine
	db         *gorm.DB
	cache      cache.Cache
	pubsub     cache.PubSub
	notify     *notify.Service
	dispatcher *gamification.Dispatcher
}

// newServer assembles the full route table against an in-memory database.
func newServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sec := config.SecurityConfig{
		JWTSecret: "test-secret",
		JWTTTLH:   72 * time.Hour,
	}

	catalog, err := gamification.NewCatalog(testDefs)
	require.NoError(t, err)

	lib := library.NewService(db, logger)
	st := store.NewService(db, c, time.Minute, logger)
	rw := rewards.NewService(db, c, logger)
	sel := gamification.NewSelector(rand.NewSource(7))
	questSvc := gamification.NewQuestService(db, catalog, lib, rw, logger)
	advSvc := gamification.NewAdventureService(db, catalog, lib, st, rw, sel, logger)
	notifySvc := notify.NewService(db, ps, logger)
	dispatcher := gamification.NewDispatcher(db, catalog, notifySvc, logger, 100)

	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	authH := rest.NewAuthHandler(db, c, sec)
	storeH := rest.NewStoreHandler(st)
	libH := rest.NewLibraryHandler(lib, questSvc, logger)
	gamH := rest.NewGamificationHandler(catalog, questSvc, advSvc, auditSvc, logger)
	notifH := rest.NewNotificationHandler(notifySvc)
	rewardH := rest.NewRewardHandler(rw)
	sseH := sse.NewHandler(ps, c, sec, logger)
	adminH := rest.NewAdminHandler(db, sched, sseH, logger)

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/auth/login", authH.Login)
		api.POST("/auth/logout", mw.Auth(sec, c), authH.Logout)
		api.POST("/auth/refresh", mw.Auth(sec, c), authH.Refresh)

		storeG := api.Group("/store")
		storeG.GET("/games", storeH.List)
		storeG.GET("/games/:id", storeH.Get)
		storeG.GET("/genres", storeH.Genres)

		libG := api.Group("/library")
		libG.Use(mw.Auth(sec, c))
		libG.GET("", libH.List)
		libG.POST("", libH.Add)

		gamG := api.Group("/gamification")
		gamG.Use(mw.Auth(sec, c))
		gamG.GET("/definitions", gamH.ListDefinitions)
		gamG.GET("/progress", gamH.UserProgress)
		gamG.GET("/quests/:id", gamH.QuestStatus)
		gamG.POST("/quests/:id/recompute", gamH.RecomputeQuest)
		gamG.GET("/adventures/:id", gamH.AdventureStatus)
		gamG.POST("/adventures/:id/start", gamH.StartAdventure)
		gamG.POST("/adventures/:id/progress", gamH.ProgressAdventure)
		gamG.POST("/adventures/:id/skip", gamH.SkipAdventureGame)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(sec, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/read", notifH.MarkRead)
		notifG.POST("/read-all", notifH.MarkAllRead)

		rewardG := api.Group("/rewards")
		rewardG.Use(mw.Auth(sec, c))
		rewardG.GET("/balance", rewardH.Balance)
		rewardG.GET("/history", rewardH.History)
		rewardG.GET("/leaderboard", rewardH.Leaderboard)

		adminG := api.Group("/admin")
		adminG.Use(rest.AdminAuth("admin-key"))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/users/:id/ban", adminH.BanUser)
		adminG.POST("/announce", adminH.Announce)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	return &testServer{
		r: r, db: db, cache: c, pubsub: ps,
		notify: notifySvc, dispatcher: dispatcher,
	}
}

func (s *testServer) seedGame(t *testing.T, title string, genres ...string) int64 {
	t.Helper()
	g := model.Game{Title: title}
	require.NoError(t, s.db.Create(&g).Error)
	for _, genre := range genres {
		require.NoError(t, s.db.Create(&model.GameGenre{GameID: g.ID, Genre: genre}).Error)
	}
	return g.ID
}

// login registers (or re-authenticates) a user and returns the bearer token.
func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	w := postJSON(s.r, "/api/auth/login", map[string]string{
		"username": username,
		"password": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["token"].(string)
}

func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getJSON(r *gin.Engine, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
