package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PlantBriefingRequest generates the morning plant briefing.
type PlantBriefingRequest struct {
	UserID         string   `json:"user_id" binding:"required"`
	AreaPreference []string `json:"area_preference"`
}

// SupervisorBriefingRequest generates a briefing scoped to the
// caller's assigned assets.
type SupervisorBriefingRequest struct {
	UserID         string   `json:"user_id" binding:"required"`
	AssignedAssets []string `json:"assigned_assets"`
}

// EODBriefingRequest generates the end-of-day summary. Date defaults
// to today in plant-local time.
type EODBriefingRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Date   string `json:"date"`
}

// HandoffBriefingRequest generates a shift handoff.
type HandoffBriefingRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// PlantBriefing handles POST /api/v1/briefings/plant. Generation is
// synchronous; the orchestrator's internal budgets bound the request.
func (s *Server) PlantBriefing(c *gin.Context) {
	var req PlantBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.orch.PlantBriefing(c.Request.Context(), req.UserID, req.AreaPreference))
}

// SupervisorBriefing handles POST /api/v1/briefings/supervisor.
func (s *Server) SupervisorBriefing(c *gin.Context) {
	var req SupervisorBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.orch.SupervisorBriefing(c.Request.Context(), req.UserID, req.AssignedAssets))
}

// EODBriefing handles POST /api/v1/briefings/eod.
func (s *Server) EODBriefing(c *gin.Context) {
	var req EODBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.orch.EODBriefing(c.Request.Context(), req.UserID, req.Date))
}

// HandoffBriefing handles POST /api/v1/briefings/handoff.
func (s *Server) HandoffBriefing(c *gin.Context) {
	var req HandoffBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.orch.HandoffBriefing(c.Request.Context(), req.UserID))
}

// GetBriefing handles GET /api/v1/briefings/:id.
func (s *Server) GetBriefing(c *gin.Context) {
	b, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "briefing not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}
