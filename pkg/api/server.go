// Package api exposes the HTTP surface: tool queries, briefing
// generation, grounding validation, the ingest webhook, and
// operational endpoints. Handlers are thin JSON mappers; the
// contracts live in the packages they call.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/briefing"
	"github.com/plantops/opsbrief/pkg/cache"
	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/database"
	"github.com/plantops/opsbrief/pkg/events"
	"github.com/plantops/opsbrief/pkg/grounding"
	"github.com/plantops/opsbrief/pkg/memory"
)

// Server wires the HTTP routes to the underlying services.
type Server struct {
	cfg       *config.Config
	exec      *cache.Executor
	engine    *actions.Engine
	orch      *briefing.Orchestrator
	store     *briefing.Store
	validator *grounding.Validator
	memories  memory.Store
	publisher *events.IngestionPublisher
	db        *database.Client
}

// Options collects the server's dependencies. DB and Memories may be
// nil; health degrades gracefully and memory lookups return empty.
type Options struct {
	Config    *config.Config
	Executor  *cache.Executor
	Engine    *actions.Engine
	Briefings *briefing.Orchestrator
	Store     *briefing.Store
	Validator *grounding.Validator
	Memories  memory.Store
	Publisher *events.IngestionPublisher
	DB        *database.Client
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	return &Server{
		cfg:       opts.Config,
		exec:      opts.Executor,
		engine:    opts.Engine,
		orch:      opts.Briefings,
		store:     opts.Store,
		validator: opts.Validator,
		memories:  opts.Memories,
		publisher: opts.Publisher,
		db:        opts.DB,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(), securityHeaders())

	router.GET("/health", s.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/query", s.Query)
		v1.GET("/tools", s.ListTools)
		v1.GET("/actions", s.Actions)
		v1.POST("/ground", s.Ground)
		v1.POST("/ingest", s.Ingest)
		v1.GET("/cache/stats", s.CacheStats)

		briefings := v1.Group("/briefings")
		{
			briefings.POST("/plant", s.PlantBriefing)
			briefings.POST("/supervisor", s.SupervisorBriefing)
			briefings.POST("/eod", s.EODBriefing)
			briefings.POST("/handoff", s.HandoffBriefing)
			briefings.GET("/:id", s.GetBriefing)
		}
	}
	return router
}

// Health reports process and database health.
func (s *Server) Health(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth := database.Health(ctx, s.db.Pool())
	if !dbHealth.Healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealth,
	})
}
