// Package pipeline orchestrates the end-to-end processing of one submitted
// URL: validate, build prompt, call the selected provider, parse the reply
// and persist the outcome, logging every step to the processing trace.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	"github.com/ternarybob/repono/internal/services/fetcher"
	"github.com/ternarybob/repono/internal/services/parser"
)

// ErrNotOwned is returned when the record does not belong to the caller.
// The handler maps it to 404 to avoid leaking record existence.
var ErrNotOwned = errors.New("url record not owned by caller")

// ErrNotPending is returned when the record is not in a processable state
var ErrNotPending = errors.New("url record is not pending")

// FallbackTitle is used when neither the submitter, the page nor the
// provider produced a usable title
const FallbackTitle = "Untitled Page"

const systemPrompt = "You are a bookmarking assistant. Given a web page, produce a concise title, " +
	"a short summary and a handful of topical tags. Follow the requested output format exactly."

// ResponseFormat selects the reply shape the prompt requests
type ResponseFormat string

const (
	// FormatMarkers requests the Title:/Summary:/Tags: text contract
	FormatMarkers ResponseFormat = "markers"
	// FormatJSON requests a single JSON object including key_points
	FormatJSON ResponseFormat = "json"
)

// Service implements the processing pipeline state machine:
// pending -> summarized | failed, with pending re-enterable via retry.
type Service struct {
	urls     interfaces.URLStorage
	logs     interfaces.ProcessingLogStorage
	selector interfaces.ProviderSelector
	parser   *parser.Parser
	fetcher  *fetcher.Service
	events   interfaces.EventPublisher
	format   ResponseFormat
	logger   arbor.ILogger
}

// NewService creates a pipeline. fetcher and events may be nil.
func NewService(
	urls interfaces.URLStorage,
	logs interfaces.ProcessingLogStorage,
	selector interfaces.ProviderSelector,
	fetchService *fetcher.Service,
	events interfaces.EventPublisher,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *Service {
	format := FormatMarkers
	if llmConfig != nil && ResponseFormat(llmConfig.ResponseFormat) == FormatJSON {
		format = FormatJSON
	}

	return &Service{
		urls:     urls,
		logs:     logs,
		selector: selector,
		parser:   parser.New(),
		fetcher:  fetchService,
		events:   events,
		format:   format,
		logger:   logger,
	}
}

// Compile-time assertion
var _ interfaces.Pipeline = (*Service)(nil)

// Process runs one processing attempt for the record. Whatever happens
// inside, the record is never left pending once Process returns: every
// failure path transitions it to failed with error details and a trace
// entry. Ownership violations abort before any state change.
func (s *Service) Process(ctx context.Context, urlID, account string) (err error) {
	record, err := s.urls.Get(ctx, urlID)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}
	if account != "" && record.Account != account {
		// Abort without state change or trace entry
		return ErrNotOwned
	}
	if record.Status != models.URLStatusPending {
		return ErrNotPending
	}

	started := time.Now().UTC()
	debug := &models.DebugInfo{}

	// Whatever blows up below must still move the record out of pending
	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("unexpected error during processing: %v", r)
			s.appendLog(ctx, urlID, models.LogTypeError, message, "")
			s.failRecord(ctx, urlID, message, debug, started)
			s.appendLog(ctx, urlID, models.LogTypeEnd, "processing aborted", "")
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	s.appendLog(ctx, urlID, models.LogTypeStart, "processing begun", "")
	s.publish(models.EventURLProcessing, record, "")
	debug.ProcessingSteps = append(debug.ProcessingSteps, "processing begun")

	// Optional page prefetch; failure is a skipped enrichment, not an error
	var page *fetcher.PageInfo
	if s.fetcher != nil && s.fetcher.Enabled() {
		if fetched, fetchErr := s.fetcher.Fetch(ctx, record.URL); fetchErr != nil {
			s.appendLog(ctx, urlID, models.LogTypeInfo, fmt.Sprintf("page prefetch skipped: %v", fetchErr), "")
			debug.ProcessingSteps = append(debug.ProcessingSteps, "page prefetch skipped")
		} else {
			page = fetched
			s.appendLog(ctx, urlID, models.LogTypeInfo, "page prefetch succeeded", "")
			debug.ProcessingSteps = append(debug.ProcessingSteps, "page prefetch succeeded")
		}
	}

	// Provider selection; a missing API key is a configuration failure and
	// no provider call is attempted
	client, err := s.selector.Select(ctx)
	if err != nil {
		message := fmt.Sprintf("provider not available: %v", err)
		s.appendLog(ctx, urlID, models.LogTypeError, message, "")
		s.failRecord(ctx, urlID, message, debug, started)
		s.appendLog(ctx, urlID, models.LogTypeEnd, "processing finished with failure", "")
		return err
	}
	debug.ProcessingSteps = append(debug.ProcessingSteps, fmt.Sprintf("selected provider %s", client.Name()))

	request := s.buildRequest(record, page)
	if payload, marshalErr := json.Marshal(request); marshalErr == nil {
		debug.APIRequest = string(payload)
		s.appendLog(ctx, urlID, models.LogTypeAPIRequest, fmt.Sprintf("calling %s", client.Name()), string(payload))
	}

	completion, err := client.CreateChatCompletion(ctx, request)
	if err != nil {
		message := fmt.Sprintf("provider call failed: %v", err)
		s.appendLog(ctx, urlID, models.LogTypeError, message, "")
		s.failRecord(ctx, urlID, message, debug, started)
		s.appendLog(ctx, urlID, models.LogTypeEnd, "processing finished with failure", "")
		return err
	}

	if payload, marshalErr := json.Marshal(completion); marshalErr == nil {
		debug.APIResponse = string(payload)
		s.appendLog(ctx, urlID, models.LogTypeAPIResponse, fmt.Sprintf("%s responded", client.Name()), string(payload))
	}

	content := completion.Choices[0].Message.Content
	debug.RawResponse = content
	s.appendLog(ctx, urlID, models.LogTypeRawResponse, "raw completion content", content)

	// A parse miss is not a processing failure: missing markers just yield
	// empty fields and the record still becomes summarized
	var parsed parser.Result
	if s.format == FormatJSON {
		parsed = s.parser.ParseStructured(content, record.Title)
	} else {
		parsed = s.parser.ParseMarkers(content)
	}
	debug.ProcessingSteps = append(debug.ProcessingSteps, "extracted fields from completion")

	title := s.resolveTitle(record, page, parsed.Title)
	debug.ProcessingTimeMs = time.Since(started).Milliseconds()

	applied, err := s.urls.Transition(ctx, urlID,
		[]models.URLStatus{models.URLStatusPending},
		func(r *models.URLRecord) {
			r.Status = models.URLStatusSummarized
			r.Title = title
			r.Summary = parsed.Summary
			r.Tags = parsed.Tags
			r.KeyPoints = parsed.KeyPoints
			r.ErrorDetails = ""
			r.Debug = debug
		})
	if err != nil {
		message := fmt.Sprintf("failed to persist result: %v", err)
		s.appendLog(ctx, urlID, models.LogTypeError, message, "")
		s.failRecord(ctx, urlID, message, debug, started)
		s.appendLog(ctx, urlID, models.LogTypeEnd, "processing finished with failure", "")
		return fmt.Errorf("failed to persist result: %w", err)
	}
	if !applied {
		// A concurrent invocation (or the reaper) already transitioned the
		// record; discard this result to keep at-most-once completion
		s.appendLog(ctx, urlID, models.LogTypeInfo, "record already transitioned, result discarded", "")
		s.appendLog(ctx, urlID, models.LogTypeEnd, "processing finished", "")
		return nil
	}

	s.appendLog(ctx, urlID, models.LogTypeInfo, "extracted fields", "")
	s.appendLog(ctx, urlID, models.LogTypeEnd, "processing finished", "")
	record.Status = models.URLStatusSummarized
	s.publish(models.EventURLSummarized, record, title)

	return nil
}

// buildRequest assembles the two-message prompt for one processing attempt
func (s *Service) buildRequest(record *models.URLRecord, page *fetcher.PageInfo) *interfaces.ChatRequest {
	var user string
	if s.format == FormatJSON {
		user = fmt.Sprintf(
			"Summarize the web page at %s.\n"+
				"Reply with a single JSON object and nothing else, with keys: "+
				"\"title\" (string), \"summary\" (string), \"tags\" (array of short strings), "+
				"\"key_points\" (array of strings).",
			record.URL)
	} else {
		user = fmt.Sprintf(
			"Summarize the web page at %s.\n"+
				"Reply in exactly this format:\n"+
				"Title: <page title>\n\n"+
				"Summary: <2-3 sentence summary>\n\n"+
				"Tags: <comma-separated tags, most relevant first>",
			record.URL)
	}

	if page != nil {
		if page.Title != "" {
			user += fmt.Sprintf("\n\nThe page reports its title as: %s", page.Title)
		}
		if page.Excerpt != "" {
			user += fmt.Sprintf("\n\nPage content excerpt:\n%s", page.Excerpt)
		}
	}

	return &interfaces.ChatRequest{
		Messages: []interfaces.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
	}
}

// resolveTitle applies the title preference order: submitter-provided over
// parsed over page title over the generic fallback
func (s *Service) resolveTitle(record *models.URLRecord, page *fetcher.PageInfo, parsedTitle string) string {
	if record.Title != "" {
		return record.Title
	}
	if parsedTitle != "" {
		return parsedTitle
	}
	if page != nil && page.Title != "" {
		return page.Title
	}
	return FallbackTitle
}

// failRecord transitions the record to failed with the given error details.
// Best effort: a record already transitioned by a concurrent invocation is
// left untouched, and persistence failures here are logged locally since no
// further recovery is possible.
func (s *Service) failRecord(ctx context.Context, urlID, message string, debug *models.DebugInfo, started time.Time) {
	if debug != nil {
		debug.ProcessingTimeMs = time.Since(started).Milliseconds()
	}

	applied, err := s.urls.Transition(ctx, urlID,
		[]models.URLStatus{models.URLStatusPending},
		func(r *models.URLRecord) {
			r.Status = models.URLStatusFailed
			r.ErrorDetails = message
			r.Debug = debug
		})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("url_id", urlID).
			Msg("Failed to persist failed transition - record may be stuck pending")
		return
	}
	if !applied {
		s.logger.Debug().
			Str("url_id", urlID).
			Msg("Record already transitioned, failure not recorded")
		return
	}

	s.publish(models.EventURLFailed, &models.URLRecord{ID: urlID, Status: models.URLStatusFailed}, message)
}

// appendLog writes a trace entry. Trace persistence is best effort - a
// failed write never interrupts processing.
func (s *Service) appendLog(ctx context.Context, urlID string, logType models.LogType, message, data string) {
	entry := models.ProcessingLogEntry{
		Type:      logType,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.logs.Append(ctx, urlID, entry); err != nil {
		s.logger.Warn().
			Err(err).
			Str("url_id", urlID).
			Str("log_type", string(logType)).
			Msg("Failed to append processing log entry")
	}
}

// publish pushes a status event to connected dashboards, if a publisher is
// wired
func (s *Service) publish(eventType string, record *models.URLRecord, message string) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.Event{
		Type:      eventType,
		URLID:     record.ID,
		Account:   record.Account,
		Status:    record.Status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
