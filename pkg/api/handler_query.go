package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// QueryRequest invokes one capability tool.
type QueryRequest struct {
	Tool  string         `json:"tool" binding:"required"`
	Scope string         `json:"scope"`
	Input map[string]any `json:"input"`
}

// Query handles POST /api/v1/query. The tool runs through the cache
// executor, so repeated queries inside a tier's TTL are served from
// memory.
func (s *Server) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := s.exec.Registry().Get(req.Tool); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool: " + req.Tool})
		return
	}

	result := s.exec.Execute(c.Request.Context(), req.Tool, req.Scope, tools.Input(req.Input))
	c.JSON(http.StatusOK, result)
}

// ListTools handles GET /api/v1/tools, returning each capability's
// name, description, and argument schema.
func (s *Server) ListTools(c *gin.Context) {
	type argInfo struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Required    bool     `json:"required"`
		Enum        []string `json:"enum,omitempty"`
		Description string   `json:"description,omitempty"`
	}
	type toolInfo struct {
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Args        []argInfo `json:"args"`
	}

	var out []toolInfo
	for _, t := range s.exec.Registry().List() {
		info := toolInfo{Name: t.Name(), Description: t.Description()}
		for _, f := range t.ArgsSchema() {
			info.Args = append(info.Args, argInfo{
				Name:        f.Name,
				Type:        string(f.Type),
				Required:    f.Required,
				Enum:        f.Enum,
				Description: f.Description,
			})
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

// Actions handles GET /api/v1/actions. The date query parameter
// defaults to yesterday in plant-local time.
func (s *Server) Actions(c *gin.Context) {
	date := models.DateOf(time.Now(), s.cfg.Location()).AddDays(-1)
	if raw := c.Query("date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date = parsed
	}

	response, degraded, err := s.engine.ActionList(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "action list unavailable: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action_list":    response,
		"degraded_tiers": degraded,
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (s *Server) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.exec.Stats())
}
