package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/afflux/partner-service/internal/database"
	"github.com/afflux/partner-service/internal/parsers/csv"
	"github.com/afflux/partner-service/internal/parsers/xlsx"
	"github.com/afflux/partner-service/internal/storage"
	"github.com/afflux/partner-service/internal/types"
)

// ImportStartedResponse is the 202 response for async imports
type ImportStartedResponse struct {
	RunID   string `json:"runId"`
	Status  string `json:"status"`
	PollURL string `json:"pollUrl"`
}

// ImportRecords ingests a batch of partner records.
//
// POST /internal/partners/:partnerId/import/:type
//
// The body is either a JSON array of string-keyed objects, a CSV file, or an
// XLSX workbook, selected by Content-Type. By default the batch is processed
// synchronously and the ingestion result is returned directly; with ?async=1
// processing happens in the background and a 202 with a poll URL is returned.
func (h *Handlers) ImportRecords(c *gin.Context) {
	partnerID, ok := h.partnerParam(c)
	if !ok {
		return
	}

	recordType, ok := types.ParseRecordType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown record type: %s", c.Param("type")),
		})
		return
	}

	body, err := h.readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raws, err := h.parseRecords(c.ContentType(), body, recordType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if asyncRequested(c) {
		h.importAsync(c, partnerID, recordType, raws, body)
		return
	}
	h.importSync(c, partnerID, recordType, raws, body)
}

func (h *Handlers) importSync(c *gin.Context, partnerID int64, recordType types.RecordType, raws []types.RawRecord, body []byte) {
	ctx := c.Request.Context()

	runID, err := h.store.CreateImportRun(ctx, partnerID, recordType, database.RunSourceAPI, len(raws))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import run"})
		return
	}

	h.archiveUpload(ctx, partnerID, recordType, runID, c.ContentType(), body)

	result, err := h.pipe.Process(ctx, partnerID, recordType, raws)
	if err != nil {
		if failErr := h.store.FailImportRun(ctx, runID, err.Error()); failErr != nil {
			log.Error().Err(failErr).Str("run_id", runID).Msg("Failed to mark import run failed")
		}
		h.batchError(c, err)
		return
	}

	if err := h.store.CompleteImportRun(ctx, runID, result); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to complete import run")
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handlers) importAsync(c *gin.Context, partnerID int64, recordType types.RecordType, raws []types.RawRecord, body []byte) {
	ctx := c.Request.Context()

	runID, err := h.store.CreateImportRun(ctx, partnerID, recordType, database.RunSourceAPI, len(raws))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import run"})
		return
	}

	h.archiveUpload(ctx, partnerID, recordType, runID, c.ContentType(), body)

	go func() {
		h.importSem <- struct{}{}
		defer func() { <-h.importSem }()

		// Detached from the request lifecycle on purpose
		bgCtx := context.Background()

		result, runErr := h.pipe.Process(bgCtx, partnerID, recordType, raws)
		if runErr != nil {
			if err := h.store.FailImportRun(bgCtx, runID, runErr.Error()); err != nil {
				log.Error().Err(err).Str("run_id", runID).Msg("Failed to mark import run failed")
			}
			return
		}
		if err := h.store.CompleteImportRun(bgCtx, runID, result); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to complete import run")
		}
	}()

	c.JSON(http.StatusAccepted, ImportStartedResponse{
		RunID:   runID,
		Status:  "started",
		PollURL: fmt.Sprintf("/internal/imports/runs/%s", runID),
	})
}

// asyncRequested reports whether the client opted into background
// processing. Only a true-ish value opts in; ?async=0 stays synchronous.
func asyncRequested(c *gin.Context) bool {
	async, err := strconv.ParseBool(c.Query("async"))
	return err == nil && async
}

// readBody reads the request body, enforcing the upload size limit
func (h *Handlers) readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > h.maxUploadBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", h.maxUploadBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}
	return body, nil
}

// archiveUpload archives the raw body for a run. Failures are logged, never
// fatal to the import itself.
func (h *Handlers) archiveUpload(ctx context.Context, partnerID int64, recordType types.RecordType, runID, contentType string, body []byte) {
	if h.archive == nil {
		return
	}
	meta := &storage.Metadata{
		ContentType: contentType,
		PartnerID:   partnerID,
		RecordType:  string(recordType),
		RunID:       runID,
		UploadedAt:  time.Now().UTC(),
	}
	if err := h.archive.Put(ctx, storage.BuildUploadKey(partnerID, runID), body, meta); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Failed to archive upload")
	}
}

// parseRecords decodes a request body into raw records based on Content-Type
func (h *Handlers) parseRecords(contentType string, body []byte, recordType types.RecordType) ([]types.RawRecord, error) {
	switch {
	case strings.Contains(contentType, "json"):
		var raws []types.RawRecord
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return raws, nil

	case strings.Contains(contentType, "spreadsheet") || strings.Contains(contentType, "excel"):
		raws, _, err := xlsx.NewParser(xlsx.DefaultOptions()).Parse(body)
		if err != nil {
			return nil, err
		}
		return raws, nil

	default:
		// CSV is the default for text bodies
		raws, headers, err := csv.NewParser(csv.DefaultOptions()).Parse(body)
		if err != nil {
			return nil, err
		}
		if err := csv.ValidateHeaders(recordType, headers); err != nil {
			return nil, err
		}
		return raws, nil
	}
}

// batchError maps batch-fatal pipeline errors to HTTP status codes
func (h *Handlers) batchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrConfigNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrConfigInactive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handlers) partnerParam(c *gin.Context) (int64, bool) {
	partnerID, err := strconv.ParseInt(c.Param("partnerId"), 10, 64)
	if err != nil || partnerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return 0, false
	}
	return partnerID, true
}
