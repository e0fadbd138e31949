package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/services/diagnostics"
	storagebadger "github.com/ternarybob/repono/internal/storage/badger"
)

// DiagnosticsHandler serves the per-record debug trace for the dashboard
type DiagnosticsHandler struct {
	urls      interfaces.URLStorage
	assembler *diagnostics.Assembler
	logger    arbor.ILogger
}

// NewDiagnosticsHandler creates a diagnostics handler
func NewDiagnosticsHandler(urls interfaces.URLStorage, assembler *diagnostics.Assembler, logger arbor.ILogger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		urls:      urls,
		assembler: assembler,
		logger:    logger,
	}
}

// GetTraceHandler returns the assembled processing trace for one record
func (h *DiagnosticsHandler) GetTraceHandler(w http.ResponseWriter, r *http.Request, urlID string) {
	account := AccountFromContext(r.Context())

	record, err := h.urls.Get(r.Context(), urlID)
	if err != nil {
		if errors.Is(err, storagebadger.ErrURLNotFound) {
			WriteError(w, http.StatusNotFound, "url not found")
		} else {
			h.logger.Error().Err(err).Str("url_id", urlID).Msg("Failed to load url record")
			WriteError(w, http.StatusInternalServerError, "failed to load url")
		}
		return
	}
	if record.Account != account {
		WriteError(w, http.StatusNotFound, "url not found")
		return
	}

	trace, err := h.assembler.Assemble(r.Context(), record)
	if err != nil {
		h.logger.Error().Err(err).Str("url_id", urlID).Msg("Failed to assemble diagnostics trace")
		WriteError(w, http.StatusInternalServerError, "failed to assemble trace")
		return
	}

	WriteJSON(w, http.StatusOK, trace)
}
