package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	storagebadger "github.com/ternarybob/repono/internal/storage/badger"
)

// SubmitRequest is the submission payload from the iOS Shortcut, the web
// form or a manual API call
type SubmitRequest struct {
	URL   string   `json:"url" validate:"required,url"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// URLHandler serves the URL record endpoints
type URLHandler struct {
	urls     interfaces.URLStorage
	logs     interfaces.ProcessingLogStorage
	queue    interfaces.JobQueue
	events   interfaces.EventPublisher
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewURLHandler creates a URL handler. events may be nil.
func NewURLHandler(
	urls interfaces.URLStorage,
	logs interfaces.ProcessingLogStorage,
	queue interfaces.JobQueue,
	events interfaces.EventPublisher,
	logger arbor.ILogger,
) *URLHandler {
	return &URLHandler{
		urls:     urls,
		logs:     logs,
		queue:    queue,
		events:   events,
		validate: validator.New(),
		logger:   logger,
	}
}

// SubmitHandler accepts a URL, inserts a pending record and enqueues
// processing. The response returns immediately - the caller polls the
// record status for the outcome.
func (h *URLHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	account := AccountFromContext(r.Context())

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "url is required and must be a valid URL")
		return
	}

	record := h.newRecord(account, &req, models.URLStatusPending)
	if err := h.urls.Insert(r.Context(), record); err != nil {
		h.logger.Error().Err(err).Msg("Failed to insert url record")
		WriteError(w, http.StatusInternalServerError, "failed to store url")
		return
	}

	h.publish(models.EventURLSubmitted, record, "")

	if err := h.queue.Enqueue(record.ID, account); err != nil {
		// The record stays pending; the reaper will fail it if nothing
		// picks it up before the staleness threshold
		h.logger.Warn().Err(err).Str("url_id", record.ID).Msg("Failed to enqueue processing job")
		WriteError(w, http.StatusServiceUnavailable, "processing queue is full, try again later")
		return
	}

	WriteAccepted(w, http.StatusCreated, "url accepted for processing", record.ID)
}

// ManualAddHandler creates a record in manual status that never enters the
// pipeline
func (h *URLHandler) ManualAddHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	account := AccountFromContext(r.Context())

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "url is required and must be a valid URL")
		return
	}

	record := h.newRecord(account, &req, models.URLStatusManual)
	if err := h.urls.Insert(r.Context(), record); err != nil {
		h.logger.Error().Err(err).Msg("Failed to insert manual url record")
		WriteError(w, http.StatusInternalServerError, "failed to store url")
		return
	}

	WriteAccepted(w, http.StatusCreated, "url stored", record.ID)
}

// ListHandler returns the account's records for the dashboard, newest first
func (h *URLHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	account := AccountFromContext(r.Context())

	page, pageSize := GetPaginationParams(r)
	status := models.URLStatus(r.URL.Query().Get("status"))

	records, err := h.urls.List(r.Context(), account, status, pageSize, page*pageSize)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list url records")
		WriteError(w, http.StatusInternalServerError, "failed to list urls")
		return
	}

	total, err := h.urls.Count(r.Context(), account)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count url records")
		WriteError(w, http.StatusInternalServerError, "failed to list urls")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"urls":      records,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// GetURLHandler is the status-poll endpoint. Returns 404 for both unknown
// and unowned records so existence never leaks across accounts.
func (h *URLHandler) GetURLHandler(w http.ResponseWriter, r *http.Request, urlID string) {
	record, ok := h.loadOwned(w, r, urlID)
	if !ok {
		return
	}

	response := map[string]interface{}{
		"id":         record.ID,
		"url":        record.URL,
		"status":     record.Status,
		"title":      record.Title,
		"summary":    record.Summary,
		"tags":       record.Tags,
		"key_points": record.KeyPoints,
		"created_at": record.CreatedAt,
		"updated_at": record.UpdatedAt,
	}
	if record.ErrorDetails != "" {
		response["error_details"] = record.ErrorDetails
	}
	if activity := h.latestActivity(r, urlID); activity != "" {
		response["latest_activity"] = activity
	}

	WriteJSON(w, http.StatusOK, response)
}

// RetryHandler re-enters a pending or failed record into the pipeline.
// Summarized records are final and respond 400.
func (h *URLHandler) RetryHandler(w http.ResponseWriter, r *http.Request, urlID string) {
	record, ok := h.loadOwned(w, r, urlID)
	if !ok {
		return
	}

	if !record.IsRetryable() {
		WriteError(w, http.StatusBadRequest, "record is not in a retryable state")
		return
	}

	applied, err := h.urls.Transition(r.Context(), urlID,
		[]models.URLStatus{models.URLStatusPending, models.URLStatusFailed},
		func(rec *models.URLRecord) {
			rec.Status = models.URLStatusPending
			rec.ErrorDetails = ""
		})
	if err != nil {
		h.logger.Error().Err(err).Str("url_id", urlID).Msg("Failed to reset record for retry")
		WriteError(w, http.StatusInternalServerError, "failed to reset record")
		return
	}
	if !applied {
		WriteError(w, http.StatusBadRequest, "record is not in a retryable state")
		return
	}

	h.appendInfoLog(r, urlID, "retry initiated")
	record.Status = models.URLStatusPending
	h.publish(models.EventURLRetried, record, "retry initiated")

	if err := h.queue.Enqueue(urlID, record.Account); err != nil {
		h.logger.Warn().Err(err).Str("url_id", urlID).Msg("Failed to enqueue retry")
		WriteError(w, http.StatusServiceUnavailable, "processing queue is full, try again later")
		return
	}

	WriteAccepted(w, http.StatusOK, "retry accepted", urlID)
}

// DeleteHandler removes a record and its processing trace
func (h *URLHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, urlID string) {
	record, ok := h.loadOwned(w, r, urlID)
	if !ok {
		return
	}

	if err := h.urls.Delete(r.Context(), record.ID); err != nil {
		h.logger.Error().Err(err).Str("url_id", urlID).Msg("Failed to delete url record")
		WriteError(w, http.StatusInternalServerError, "failed to delete url")
		return
	}
	if err := h.logs.DeleteByURL(r.Context(), record.ID); err != nil {
		h.logger.Warn().Err(err).Str("url_id", urlID).Msg("Failed to delete processing logs")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "url deleted",
	})
}

// loadOwned fetches the record and enforces ownership, writing 404 for
// missing and unowned records alike
func (h *URLHandler) loadOwned(w http.ResponseWriter, r *http.Request, urlID string) (*models.URLRecord, bool) {
	account := AccountFromContext(r.Context())

	record, err := h.urls.Get(r.Context(), urlID)
	if err != nil {
		if errors.Is(err, storagebadger.ErrURLNotFound) {
			WriteError(w, http.StatusNotFound, "url not found")
		} else {
			h.logger.Error().Err(err).Str("url_id", urlID).Msg("Failed to load url record")
			WriteError(w, http.StatusInternalServerError, "failed to load url")
		}
		return nil, false
	}
	if record.Account != account {
		WriteError(w, http.StatusNotFound, "url not found")
		return nil, false
	}
	return record, true
}

func (h *URLHandler) newRecord(account string, req *SubmitRequest, status models.URLStatus) *models.URLRecord {
	now := time.Now().UTC()
	return &models.URLRecord{
		ID:        common.NewURLID(),
		Account:   account,
		URL:       req.URL, // stored verbatim
		Status:    status,
		Title:     req.Title,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (h *URLHandler) latestActivity(r *http.Request, urlID string) string {
	entries, err := h.logs.GetByURL(r.Context(), urlID)
	if err != nil || len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].Message
}

func (h *URLHandler) appendInfoLog(r *http.Request, urlID, message string) {
	entry := models.ProcessingLogEntry{
		Type:      models.LogTypeInfo,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.logs.Append(r.Context(), urlID, entry); err != nil {
		h.logger.Warn().Err(err).Str("url_id", urlID).Msg("Failed to append log entry")
	}
}

func (h *URLHandler) publish(eventType string, record *models.URLRecord, message string) {
	if h.events == nil {
		return
	}
	h.events.Publish(models.Event{
		Type:      eventType,
		URLID:     record.ID,
		Account:   record.Account,
		Status:    record.Status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
