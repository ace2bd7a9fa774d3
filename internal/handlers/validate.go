package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/afflux/partner-service/internal/parsers/csv"
	"github.com/afflux/partner-service/internal/types"
)

// ValidateResponse reports whether an uploaded CSV matches the expected
// header shape for a record type, without persisting anything.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Headers  []string `json:"headers"`
	RowCount int      `json:"rowCount"`
	Error    string   `json:"error,omitempty"`
}

// ValidateCSV checks a CSV upload against the expected column set.
//
// POST /internal/validate/:type
func (h *Handlers) ValidateCSV(c *gin.Context) {
	recordType, ok := types.ParseRecordType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown record type: %s", c.Param("type")),
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if int64(len(body)) > h.maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", h.maxUploadBytes),
		})
		return
	}

	raws, headers, err := csv.NewParser(csv.DefaultOptions()).Parse(body)
	if err != nil {
		c.JSON(http.StatusOK, ValidateResponse{Valid: false, Error: err.Error()})
		return
	}

	resp := ValidateResponse{
		Headers:  headers,
		RowCount: len(raws),
	}
	if err := csv.ValidateHeaders(recordType, headers); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Valid = true
	}

	c.JSON(http.StatusOK, resp)
}
