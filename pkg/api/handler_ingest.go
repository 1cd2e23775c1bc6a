package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantops/opsbrief/pkg/events"
	"github.com/plantops/opsbrief/pkg/models"
)

// IngestRequest is the webhook body the ingestion pipeline posts
// after writing a batch. It writes nothing here; publishing the event
// invalidates the caches that could now be stale.
type IngestRequest struct {
	Date   string   `json:"date"`
	Tables []string `json:"tables"`
}

// Ingest handles POST /api/v1/ingest.
func (s *Server) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := events.IngestionEvent{Tables: req.Tables}
	if req.Date != "" {
		date, err := models.ParseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event.Date = date
	}

	if err := s.publisher.Publish(event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion event delivery failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
