package reaper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	"github.com/ternarybob/repono/internal/storage/badger"
)

func openTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	manager, err := badger.NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return manager
}

func newTestReaper(t *testing.T, storage interfaces.StorageManager) *Service {
	t.Helper()
	return NewService(storage.URLs(), storage.ProcessingLogs(), nil, &common.ReaperConfig{
		Enabled:          true,
		ThresholdMinutes: 15,
	}, common.GetLogger())
}

func insertRecord(t *testing.T, storage interfaces.StorageManager, id string, status models.URLStatus, age time.Duration) {
	t.Helper()
	now := time.Now().UTC()
	err := storage.URLs().Insert(context.Background(), &models.URLRecord{
		ID:        id,
		Account:   "alice",
		URL:       "https://example.com/" + id,
		Status:    status,
		CreatedAt: now.Add(-age),
		UpdatedAt: now.Add(-age),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func TestRun_FailsStuckRecords(t *testing.T) {
	ctx := context.Background()
	storage := openTestStorage(t)
	svc := newTestReaper(t, storage)

	insertRecord(t, storage, "url_stuck", models.URLStatusPending, 30*time.Minute)
	insertRecord(t, storage, "url_fresh", models.URLStatusPending, time.Minute)
	insertRecord(t, storage, "url_done", models.URLStatusSummarized, 30*time.Minute)

	report, err := svc.Run(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Count != 1 {
		t.Fatalf("Count = %d, want 1", report.Count)
	}
	if len(report.URLs) != 1 || report.URLs[0].ID != "url_stuck" {
		t.Errorf("URLs = %v", report.URLs)
	}

	stuck, _ := storage.URLs().Get(ctx, "url_stuck")
	if stuck.Status != models.URLStatusFailed {
		t.Errorf("stuck Status = %s, want failed", stuck.Status)
	}
	if !strings.Contains(stuck.ErrorDetails, "processing timed out") {
		t.Errorf("ErrorDetails = %q", stuck.ErrorDetails)
	}

	fresh, _ := storage.URLs().Get(ctx, "url_fresh")
	if fresh.Status != models.URLStatusPending {
		t.Errorf("fresh Status = %s, want pending untouched", fresh.Status)
	}

	// The failed record carries a trace entry explaining the timeout
	entries, err := storage.ProcessingLogs().GetByURL(ctx, "url_stuck")
	if err != nil {
		t.Fatalf("GetByURL failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != models.LogTypeError {
		t.Errorf("trace entries = %v", entries)
	}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	storage := openTestStorage(t)
	svc := newTestReaper(t, storage)

	insertRecord(t, storage, "url_stuck", models.URLStatusPending, 30*time.Minute)

	first, err := svc.Run(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if first.Count != 1 {
		t.Fatalf("first Count = %d, want 1", first.Count)
	}

	second, err := svc.Run(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.Count != 0 {
		t.Errorf("second Count = %d, want 0", second.Count)
	}
}

func TestRun_ThresholdOverride(t *testing.T) {
	ctx := context.Background()
	storage := openTestStorage(t)
	svc := newTestReaper(t, storage)

	insertRecord(t, storage, "url_5min", models.URLStatusPending, 5*time.Minute)

	// Default 15 minute threshold leaves the record alone
	report, err := svc.Run(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Count != 0 {
		t.Fatalf("Count = %d with default threshold, want 0", report.Count)
	}

	// An explicit 2 minute threshold reaps it
	report, err = svc.Run(ctx, "alice", 2*time.Minute)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Count != 1 {
		t.Errorf("Count = %d with 2m threshold, want 1", report.Count)
	}
}

func TestThresholdDefault(t *testing.T) {
	svc := NewService(nil, nil, nil, &common.ReaperConfig{}, common.GetLogger())
	if got := svc.Threshold(); got != 15*time.Minute {
		t.Errorf("Threshold = %s, want 15m", got)
	}
}
