package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantops/opsbrief/pkg/grounding"
	"github.com/plantops/opsbrief/pkg/memory"
)

// memorySearchLimit bounds how many memory entries back a single
// grounding pass.
const memorySearchLimit = 5

// GroundRequest validates a generated response against retrieved
// rows. UserID is optional; when present the user's memory entries
// join the evidence pool.
type GroundRequest struct {
	ResponseText string             `json:"response_text" binding:"required"`
	Sources      []grounding.Source `json:"sources"`
	UserID       string             `json:"user_id"`
}

// Ground handles POST /api/v1/ground.
func (s *Server) Ground(c *gin.Context) {
	var req GroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var memories []memory.Entry
	if req.UserID != "" {
		memories = memory.SafeSearch(c.Request.Context(), s.memories,
			req.ResponseText, req.UserID, memorySearchLimit, 0)
	}

	cited := s.validator.ValidateResponse(c.Request.Context(), req.ResponseText, req.Sources, memories)
	c.JSON(http.StatusOK, cited)
}
