package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/services/reaper"
)

// CleanupRequest optionally overrides the configured staleness threshold
type CleanupRequest struct {
	ThresholdMinutes int `json:"threshold_minutes,omitempty"`
}

// AdminHandler serves operational endpoints (stuck-job cleanup)
type AdminHandler struct {
	reaper *reaper.Service
	logger arbor.ILogger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(reaperService *reaper.Service, logger arbor.ILogger) *AdminHandler {
	return &AdminHandler{
		reaper: reaperService,
		logger: logger,
	}
}

// CleanupHandler runs the reaper for the caller's account on demand
func (h *AdminHandler) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	account := AccountFromContext(r.Context())

	var req CleanupRequest
	if r.Body != nil {
		// An empty body means "use the configured threshold"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	threshold := time.Duration(req.ThresholdMinutes) * time.Minute
	report, err := h.reaper.Run(r.Context(), account, threshold)
	if err != nil {
		h.logger.Error().Err(err).Msg("On-demand reaper run failed")
		WriteError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   report.Count,
		"urls":    report.URLs,
	})
}
