// Package reaper detects records stuck in pending past a staleness
// threshold and transitions them to failed with an audit trail.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
)

// Report summarizes one reaper run
type Report struct {
	Count int                `json:"count"`
	URLs  []models.URLRecord `json:"urls"`
}

// Service scans for stuck pending records. Safe to run repeatedly and
// concurrently with the pipeline: the status compare-and-swap means a record
// the pipeline finished between selection and update is left untouched.
type Service struct {
	urls    interfaces.URLStorage
	logs    interfaces.ProcessingLogStorage
	events  interfaces.EventPublisher
	config  *common.ReaperConfig
	cron    *cron.Cron
	logger  arbor.ILogger
	running bool
}

// NewService creates a reaper. events may be nil.
func NewService(
	urls interfaces.URLStorage,
	logs interfaces.ProcessingLogStorage,
	events interfaces.EventPublisher,
	config *common.ReaperConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		urls:   urls,
		logs:   logs,
		events: events,
		config: config,
		cron:   cron.New(),
		logger: logger,
	}
}

// Threshold returns the configured staleness threshold
func (s *Service) Threshold() time.Duration {
	minutes := s.config.ThresholdMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

// Start schedules periodic runs across all accounts
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Reaper disabled by configuration")
		return nil
	}
	if s.running {
		return fmt.Errorf("reaper already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		report, err := s.Run(context.Background(), "", s.Threshold())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled reaper run failed")
			return
		}
		if report.Count > 0 {
			s.logger.Info().
				Int("count", report.Count).
				Msg("Reaper transitioned stuck records to failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Dur("threshold", s.Threshold()).
		Msg("Reaper started")

	return nil
}

// Stop halts scheduled runs
func (s *Service) Stop() {
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Reaper stopped")
}

// Run performs one sweep. account scopes the scan; empty means all accounts.
// Records whose UpdatedAt is older than now minus threshold are transitioned
// to failed; records a concurrent pipeline already completed are skipped and
// not counted, which also makes back-to-back runs fix zero records the
// second time.
func (s *Service) Run(ctx context.Context, account string, threshold time.Duration) (*Report, error) {
	if threshold <= 0 {
		threshold = s.Threshold()
	}
	cutoff := time.Now().UTC().Add(-threshold)

	stale, err := s.urls.ListStalePending(ctx, account, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for stuck records: %w", err)
	}

	report := &Report{URLs: []models.URLRecord{}}
	for i := range stale {
		record := stale[i]
		message := fmt.Sprintf("processing timed out: record was pending for more than %s", threshold)

		s.appendLog(ctx, record.ID, message)

		applied, err := s.urls.Transition(ctx, record.ID,
			[]models.URLStatus{models.URLStatusPending},
			func(r *models.URLRecord) {
				r.Status = models.URLStatusFailed
				r.ErrorDetails = message
			})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("url_id", record.ID).
				Msg("Reaper failed to transition record")
			continue
		}
		if !applied {
			continue
		}

		record.Status = models.URLStatusFailed
		record.ErrorDetails = message
		report.Count++
		report.URLs = append(report.URLs, record)

		if s.events != nil {
			s.events.Publish(models.Event{
				Type:      models.EventURLFailed,
				URLID:     record.ID,
				Account:   record.Account,
				Status:    models.URLStatusFailed,
				Message:   message,
				Timestamp: time.Now().UTC(),
			})
		}
	}

	return report, nil
}

func (s *Service) appendLog(ctx context.Context, urlID, message string) {
	entry := models.ProcessingLogEntry{
		Type:      models.LogTypeError,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.logs.Append(ctx, urlID, entry); err != nil {
		s.logger.Warn().
			Err(err).
			Str("url_id", urlID).
			Msg("Reaper failed to append log entry")
	}
}
