package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/services"
	"hyperblend/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx := context.Background()
	db, err := storage.OpenDB(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	store, closeStore, err := storage.OpenBackend(ctx, cfg, db, logging)
	if err != nil {
		logging.Fatal("Failed to open graph backend", zap.Error(err), zap.String("backend", cfg.GraphBackend))
	}
	defer closeStore()
	logging.Info("Graph backend ready", zap.String("backend", cfg.GraphBackend))

	var runLog *storage.RunLog
	if db != nil {
		if runLog, err = storage.NewRunLog(db); err != nil {
			logging.Fatal("Run log migration failed", zap.Error(err))
		}
	}

	orch, err := services.NewPipeline(cfg, store, runLog, logging)
	if err != nil {
		logging.Fatal("Pipeline setup failed", zap.Error(err))
	}

	router := newRouter(store, orch, logging)

	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled enrichment job...")
		rep, err := orch.RunAll(context.Background(), "cron")
		if err != nil {
			logging.Error("Cron job failed", zap.Error(err))
			return
		}
		logging.Info("Cron job completed",
			zap.Int("compounds_enriched", rep.CompoundsEnriched),
			zap.Int("failures", len(rep.Failures)))
	})
	if err != nil {
		logging.Fatal("Invalid cron schedule", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func newRouter(store storage.GraphStore, orch *services.Orchestrator, logging *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	setupHealthRoutes(router, store)
	setupCompoundRoutes(router, orch, logging)
	setupBatchRoutes(router, orch, logging)
	setupSourceRoutes(router, orch, logging)
	setupTargetRoutes(router, orch.Engine.Repo, logging)
	setupAdminRoutes(router, orch.Engine.Repo, logging)
	return router
}
