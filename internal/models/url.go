package models

import (
	"time"
)

// URLStatus represents the processing state of a submitted URL
type URLStatus string

const (
	// URLStatusPending - record created, processing not yet finished
	URLStatusPending URLStatus = "pending"
	// URLStatusSummarized - provider call succeeded and fields were extracted
	URLStatusSummarized URLStatus = "summarized"
	// URLStatusFailed - processing failed, see ErrorDetails
	URLStatusFailed URLStatus = "failed"
	// URLStatusManual - created via the manual-add flow, never processed
	URLStatusManual URLStatus = "manual"
)

// DebugInfo carries the provider-agnostic trace captured during one
// processing attempt. Operator diagnostics only, never authoritative.
type DebugInfo struct {
	APIRequest       string   `json:"api_request,omitempty"`
	APIResponse      string   `json:"api_response,omitempty"`
	ProcessingSteps  []string `json:"processing_steps,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms,omitempty"`
	RawResponse      string   `json:"raw_response,omitempty"`
}

// URLRecord represents one submitted URL and its processing outcome
type URLRecord struct {
	ID      string    `json:"id" badgerhold:"key"`
	Account string    `json:"account" badgerhold:"index"`
	URL     string    `json:"url"` // stored verbatim, no normalization
	Status  URLStatus `json:"status" badgerhold:"index"`

	Title     string   `json:"title,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`

	ErrorDetails string     `json:"error_details,omitempty"`
	Debug        *DebugInfo `json:"debug_info,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRetryable reports whether the record may be re-entered into the pipeline.
// Summarized records are final; manual records never enter the pipeline.
func (r *URLRecord) IsRetryable() bool {
	return r.Status == URLStatusPending || r.Status == URLStatusFailed
}

// Touch refreshes the UpdatedAt timestamp. Every state transition must call
// this - the reaper uses UpdatedAt to detect staleness.
func (r *URLRecord) Touch() {
	r.UpdatedAt = time.Now().UTC()
}
