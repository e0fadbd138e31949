// Package diagnostics reconstructs a human-readable processing timeline for
// one record from its append-only log trace.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
)

// Trace is the assembled debug view served to the dashboard
type Trace struct {
	URLID            string           `json:"url_id"`
	Status           models.URLStatus `json:"status"`
	ProcessingSteps  []string         `json:"processing_steps"`
	APIRequest       string           `json:"api_request,omitempty"`
	APIResponse      string           `json:"api_response,omitempty"`
	RawResponse      string           `json:"raw_response,omitempty"`
	ErrorDetails     string           `json:"error_details,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	// Synthetic marks a placeholder trace generated from the record's status
	// alone (records created before logging existed). Never confuse it with
	// a real trace.
	Synthetic bool `json:"synthetic"`
}

// Assembler builds traces from processing log rows
type Assembler struct {
	logs   interfaces.ProcessingLogStorage
	logger arbor.ILogger
}

// NewAssembler creates a diagnostics assembler
func NewAssembler(logs interfaces.ProcessingLogStorage, logger arbor.ILogger) *Assembler {
	return &Assembler{
		logs:   logs,
		logger: logger,
	}
}

// Assemble reads the record's log rows in creation order and partitions them
// into the trace structure. Elapsed time is the gap between the first start
// entry and the first end or error entry. Records with no log rows get a
// clearly tagged synthetic placeholder.
func (a *Assembler) Assemble(ctx context.Context, record *models.URLRecord) (*Trace, error) {
	entries, err := a.logs.GetByURL(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read processing logs: %w", err)
	}

	if len(entries) == 0 {
		return a.synthetic(record), nil
	}

	trace := &Trace{
		URLID:           record.ID,
		Status:          record.Status,
		ProcessingSteps: []string{},
		ErrorDetails:    record.ErrorDetails,
	}

	var startAt, finishedAt *models.ProcessingLogEntry
	for i := range entries {
		entry := entries[i]

		switch entry.Type {
		case models.LogTypeStart:
			if startAt == nil {
				startAt = &entries[i]
			}
		case models.LogTypeEnd, models.LogTypeError:
			if finishedAt == nil {
				finishedAt = &entries[i]
			}
		case models.LogTypeAPIRequest:
			if trace.APIRequest == "" {
				trace.APIRequest = entry.Data
			}
		case models.LogTypeAPIResponse:
			if trace.APIResponse == "" {
				trace.APIResponse = entry.Data
			}
		case models.LogTypeRawResponse:
			if trace.RawResponse == "" {
				trace.RawResponse = entry.Data
			}
		}

		if entry.Type == models.LogTypeError && trace.ErrorDetails == "" {
			trace.ErrorDetails = entry.Message
		}

		trace.ProcessingSteps = append(trace.ProcessingSteps, fmt.Sprintf(
			"[%s] %s: %s",
			entry.CreatedAt.Format("15:04:05.000"),
			entry.Type,
			entry.Message,
		))
	}

	if startAt != nil && finishedAt != nil && finishedAt.CreatedAt.After(startAt.CreatedAt) {
		trace.ProcessingTimeMs = finishedAt.CreatedAt.Sub(startAt.CreatedAt).Milliseconds()
	}

	return trace, nil
}

// synthetic builds a placeholder trace from the record's current status
// alone, deterministically, and tags it so it can never be mistaken for a
// real trace
func (a *Assembler) synthetic(record *models.URLRecord) *Trace {
	steps := []string{
		fmt.Sprintf("record created at %s", record.CreatedAt.Format("2006-01-02 15:04:05")),
	}
	switch record.Status {
	case models.URLStatusSummarized:
		steps = append(steps, "processing completed (no trace recorded)")
	case models.URLStatusFailed:
		steps = append(steps, "processing failed (no trace recorded)")
	case models.URLStatusManual:
		steps = append(steps, "created manually, never processed")
	default:
		steps = append(steps, "processing not yet finished")
	}

	return &Trace{
		URLID:           record.ID,
		Status:          record.Status,
		ProcessingSteps: steps,
		ErrorDetails:    record.ErrorDetails,
		Synthetic:       true,
	}
}
