package models

import (
	"time"
)

// LogType classifies a processing log entry
type LogType string

const (
	LogTypeStart       LogType = "start"
	LogTypeInfo        LogType = "info"
	LogTypeAPIRequest  LogType = "api_request"
	LogTypeAPIResponse LogType = "api_response"
	LogTypeRawResponse LogType = "raw_response"
	LogTypeError       LogType = "error"
	LogTypeEnd         LogType = "end"
)

// ProcessingLogEntry is one append-only row in a URL's processing trace.
// Entries are informational only - the record's Status field, not the log,
// is authoritative for whether processing succeeded.
type ProcessingLogEntry struct {
	AssociatedURLID string    `json:"url_id" badgerhold:"index"`
	Type            LogType   `json:"type"`
	Message         string    `json:"message"`
	Data            string    `json:"data,omitempty"` // serialized request/response payloads
	CreatedAt       time.Time `json:"created_at"`
}
