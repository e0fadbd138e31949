package models

import (
	"time"
)

// Event types broadcast to dashboard clients over the WebSocket stream
const (
	EventURLSubmitted  = "url_submitted"
	EventURLProcessing = "url_processing"
	EventURLSummarized = "url_summarized"
	EventURLFailed     = "url_failed"
	EventURLRetried    = "url_retried"
)

// Event is a status-transition notification pushed to connected dashboards.
// The record in storage remains the source of truth; events are advisory.
type Event struct {
	Type      string    `json:"type"`
	URLID     string    `json:"url_id"`
	Account   string    `json:"account,omitempty"`
	Status    URLStatus `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
