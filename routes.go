package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hyperblend/models"
	"hyperblend/services"
	"hyperblend/storage"
)

const defaultListLimit = 100

// queryLimit liest ?limit=, fällt bei fehlenden oder ungültigen Werten auf den Standard zurück.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > 1000 {
		return 1000
	}
	return n
}

func setupHealthRoutes(router *gin.Engine, store storage.GraphStore) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if p, ok := store.(storage.Pinger); ok {
			if err := p.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// compoundDetail ist die API-Darstellung einer Verbindung samt Quellen und Targets.
type compoundDetail struct {
	*models.Compound
	Sources []*models.Source     `json:"sources"`
	Targets []storage.TargetLink `json:"targets"`
}

func setupCompoundRoutes(router *gin.Engine, orch *services.Orchestrator, log *zap.Logger) {
	repo := orch.Engine.Repo
	rg := router.Group("/compounds")

	rg.GET("", func(c *gin.Context) {
		var where map[string]any
		if name := c.Query("name"); name != "" {
			where = map[string]any{"canonical_name": models.CanonicalName(name)}
		}
		compounds, err := repo.ListCompounds(c.Request.Context(), where, queryLimit(c))
		if err != nil {
			log.Error("Listing compounds failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, compounds)
	})

	rg.GET("/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		compound, err := repo.GetCompound(ctx, c.Param("id"))
		if errors.Is(err, storage.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "compound not found"})
			return
		}
		if err != nil {
			log.Error("Loading compound failed", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		detail := compoundDetail{Compound: compound}
		if detail.Sources, err = repo.CompoundSources(ctx, compound.ID); err != nil {
			log.Error("Loading compound sources failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		if detail.Targets, err = repo.CompoundTargets(ctx, compound.ID); err != nil {
			log.Error("Loading compound targets failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	rg.POST("/enrich", func(c *gin.Context) {
		var req models.CompoundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		out := orch.Process(c.Request.Context(), req)
		switch {
		case out.Succeeded():
			c.JSON(http.StatusOK, out)
		case out.State == models.StateRejected:
			c.JSON(http.StatusUnprocessableEntity, out)
		default:
			c.JSON(http.StatusInternalServerError, out)
		}
	})
}

func setupBatchRoutes(router *gin.Engine, orch *services.Orchestrator, log *zap.Logger) {
	rg := router.Group("/batch")

	rg.POST("", func(c *gin.Context) {
		var req struct {
			Compounds []models.CompoundRequest `json:"compounds" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: compounds required"})
			return
		}
		rep, err := orch.Run(c.Request.Context(), "api", req.Compounds)
		if err != nil {
			log.Error("Batch run failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	rg.POST("/all", func(c *gin.Context) {
		go func() {
			rep, err := orch.RunAll(context.Background(), "api")
			if err != nil {
				log.Error("Async batch over all compounds failed", zap.Error(err))
				return
			}
			log.Info("Async batch over all compounds completed",
				zap.String("run_id", rep.RunID),
				zap.Int("compounds_enriched", rep.CompoundsEnriched))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Enrichment for all compounds triggered."})
	})

	rg.GET("/runs", func(c *gin.Context) {
		if orch.RunLog == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run log not configured"})
			return
		}
		runs, err := orch.RunLog.Recent(c.Request.Context(), queryLimit(c))
		if err != nil {
			log.Error("Loading batch runs failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, runs)
	})
}

func setupSourceRoutes(router *gin.Engine, orch *services.Orchestrator, log *zap.Logger) {
	repo := orch.Engine.Repo
	rg := router.Group("/sources")

	rg.GET("", func(c *gin.Context) {
		sources, err := repo.ListSources(c.Request.Context(), queryLimit(c))
		if err != nil {
			log.Error("Listing sources failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, sources)
	})

	rg.POST("", func(c *gin.Context) {
		var src models.Source
		if err := c.ShouldBindJSON(&src); err != nil || strings.TrimSpace(src.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: name required"})
			return
		}
		src.Type = models.ParseSourceType(string(src.Type))
		saved, err := orch.Engine.UpsertSource(c.Request.Context(), &src)
		if err != nil {
			log.Error("Saving source failed", zap.String("name", src.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save source"})
			return
		}
		c.JSON(http.StatusCreated, saved)
	})

	rg.GET("/:id", func(c *gin.Context) {
		src, err := repo.GetSource(c.Request.Context(), c.Param("id"))
		if errors.Is(err, storage.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}
		if err != nil {
			log.Error("Loading source failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, src)
	})
}

func setupTargetRoutes(router *gin.Engine, repo *storage.Repository, log *zap.Logger) {
	rg := router.Group("/targets")

	rg.GET("", func(c *gin.Context) {
		targets, err := repo.ListTargets(c.Request.Context(), c.Query("organism"), queryLimit(c))
		if err != nil {
			log.Error("Listing targets failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, targets)
	})

	rg.GET("/:id", func(c *gin.Context) {
		t, err := repo.GetTarget(c.Request.Context(), c.Param("id"))
		if errors.Is(err, storage.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		if err != nil {
			log.Error("Loading target failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, t)
	})
}

func setupAdminRoutes(router *gin.Engine, repo *storage.Repository, log *zap.Logger) {
	rg := router.Group("/admin")

	rg.POST("/cleanup-targets", func(c *gin.Context) {
		removed, err := repo.CleanupNonHumanTargets(c.Request.Context())
		if err != nil {
			log.Error("Target cleanup failed", zap.Int("removed", removed), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "removed": removed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	})

	rg.GET("/verify", func(c *gin.Context) {
		rep, err := repo.Verify(c.Request.Context())
		if err != nil {
			log.Error("Graph verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, rep)
	})
}
