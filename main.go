package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/zero-Zino/gamevault/api/rest"
	"github.com/zero-Zino/gamevault/api/sse"
	"github.com/zero-Zino/gamevault/audit"
	"github.com/zero-Zino/gamevault/cache"
	"github.com/zero-Zino/gamevault/config"
	dbadapter "github.com/zero-Zino/gamevault/db"
	"github.com/zero-Zino/gamevault/gamification"
	"github.com/zero-Zino/gamevault/library"
	mw "github.com/zero-Zino/gamevault/middleware"
	"github.com/zero-Zino/gamevault/model"
	"github.com/zero-Zino/gamevault/notify"
	"github.com/zero-Zino/gamevault/rewards"
	"github.com/zero-Zino/gamevault/scheduler"
	"github.com/zero-Zino/gamevault/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Quest/Adventure Catalog ----
	catalog, err := gamification.LoadCatalog(cfg.Gamification.DefinitionsPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	logger.Info("Catalog loaded",
		zap.Int("quests", len(catalog.Quests())),
		zap.Int("adventures", len(catalog.Adventures())))

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Services ----
	librarySvc := library.NewService(db, logger)
	storeSvc := store.NewService(db, c, cfg.Gamification.GenreCacheTTL, logger)
	rewardSvc := rewards.NewService(db, c, logger)
	notifySvc := notify.NewService(db, pubsub, logger)
	selector := gamification.NewSelector(rand.NewSource(time.Now().UnixNano()))
	questSvc := gamification.NewQuestService(db, catalog, librarySvc, rewardSvc, logger)
	adventureSvc := gamification.NewAdventureService(db, catalog, librarySvc, storeSvc, rewardSvc, selector, logger)
	dispatcher := gamification.NewDispatcher(db, catalog, notifySvc, logger, cfg.Gamification.OutboxBatch)

	// ---- Periodic Scheduler Tasks ----
	sched.AddTicker("outbox_dispatch", cfg.Gamification.OutboxInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := dispatcher.Dispatch(ctx); err != nil {
			logger.Error("outbox dispatch failed", zap.Error(err))
		}
	})
	sched.AddTicker("ranking_refresh", cfg.Gamification.RankingInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := rewardSvc.RefreshLeaderboard(ctx); err != nil {
			logger.Error("leaderboard refresh failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	storeH := apirest.NewStoreHandler(storeSvc)
	libH := apirest.NewLibraryHandler(librarySvc, questSvc, logger)
	gamH := apirest.NewGamificationHandler(catalog, questSvc, adventureSvc, auditSvc, logger)
	notifH := apirest.NewNotificationHandler(notifySvc)
	rewardH := apirest.NewRewardHandler(rewardSvc)
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	adminH := apirest.NewAdminHandler(db, sched, sseH, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		storeG := api.Group("/store")
		storeG.GET("/games", storeH.List)
		storeG.GET("/games/:id", storeH.Get)
		storeG.GET("/genres", storeH.Genres)

		libG := api.Group("/library")
		libG.Use(mw.Auth(cfg.Security, c))
		libG.GET("", libH.List)
		libG.POST("", libH.Add)

		gamG := api.Group("/gamification")
		gamG.Use(mw.Auth(cfg.Security, c))
		gamG.GET("/definitions", gamH.ListDefinitions)
		gamG.GET("/progress", gamH.UserProgress)
		gamG.GET("/quests/:id", gamH.QuestStatus)
		gamG.POST("/quests/:id/recompute", gamH.RecomputeQuest)
		gamG.GET("/adventures/:id", gamH.AdventureStatus)
		gamG.POST("/adventures/:id/start", gamH.StartAdventure)
		gamG.POST("/adventures/:id/progress", gamH.ProgressAdventure)
		gamG.POST("/adventures/:id/skip", gamH.SkipAdventureGame)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(cfg.Security, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/read", notifH.MarkRead)
		notifG.POST("/read-all", notifH.MarkAllRead)

		rewardG := api.Group("/rewards")
		rewardG.Use(mw.Auth(cfg.Security, c))
		rewardG.GET("/balance", rewardH.Balance)
		rewardG.GET("/history", rewardH.History)
		rewardG.GET("/leaderboard", rewardH.Leaderboard)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/users/:id/ban", adminH.BanUser)
		adminG.POST("/announce", adminH.Announce)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	// ---- SSE ----
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
