package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/afflux/partner-service/internal/database"
)

// ListRunsResponse represents the response for listing import runs
type ListRunsResponse struct {
	Runs []*database.ImportRun `json:"runs"`
}

// ListRuns returns recent import runs for a partner.
//
// GET /internal/imports/runs?partnerId=123&limit=20
func (h *Handlers) ListRuns(c *gin.Context) {
	partnerID, err := strconv.ParseInt(c.Query("partnerId"), 10, 64)
	if err != nil || partnerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partnerId query parameter is required"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
	}

	runs, err := h.store.ListImportRuns(c.Request.Context(), partnerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
		return
	}

	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
}

// GetRun returns a single import run by ID.
//
// GET /internal/imports/runs/:runId
func (h *Handlers) GetRun(c *gin.Context) {
	runID := c.Param("runId")

	run, err := h.store.GetImportRun(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}
