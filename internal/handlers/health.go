package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health handles the health check endpoint
func (h *Handlers) Health(c *gin.Context) {
	response := HealthResponse{Status: "ok"}

	if h.db == nil {
		response.Database = "not configured"
		c.JSON(http.StatusOK, response)
		return
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		response.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.Database = "connected"

	c.JSON(http.StatusOK, response)
}
