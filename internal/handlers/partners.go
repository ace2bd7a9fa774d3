package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/afflux/partner-service/internal/partners"
)

// PartnerSummary is the list view of a partner config
type PartnerSummary struct {
	PartnerID   int64  `json:"partnerId"`
	PartnerName string `json:"partnerName"`
	IsActive    bool   `json:"isActive"`
	DateFormat  string `json:"dateFormat"`
	Timezone    string `json:"timezone,omitempty"`
}

// ListPartnersResponse represents the partner listing response
type ListPartnersResponse struct {
	Partners []PartnerSummary `json:"partners"`
}

// ListPartners returns all configured partners.
//
// GET /internal/partners
func (h *Handlers) ListPartners(c *gin.Context) {
	configs, err := h.store.ListPartnerConfigs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch partners"})
		return
	}

	summaries := make([]PartnerSummary, 0, len(configs))
	for _, cfg := range configs {
		summaries = append(summaries, summarize(cfg))
	}

	c.JSON(http.StatusOK, ListPartnersResponse{Partners: summaries})
}

// GetPartner returns a single partner config.
//
// GET /internal/partners/:partnerId
func (h *Handlers) GetPartner(c *gin.Context) {
	partnerID, ok := h.partnerParam(c)
	if !ok {
		return
	}

	cfg, err := h.store.GetPartnerConfig(c.Request.Context(), partnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch partner"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "partner not found"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func summarize(cfg *partners.Config) PartnerSummary {
	return PartnerSummary{
		PartnerID:   cfg.PartnerID,
		PartnerName: cfg.PartnerName,
		IsActive:    cfg.IsActive,
		DateFormat:  cfg.DateFormat,
		Timezone:    cfg.Timezone,
	}
}
