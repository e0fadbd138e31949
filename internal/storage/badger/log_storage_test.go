package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/repono/internal/models"
)

func TestProcessingLogStorage_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	logs := openTestManager(t).ProcessingLogs()

	base := time.Now().UTC()
	for i, logType := range []models.LogType{
		models.LogTypeStart,
		models.LogTypeAPIRequest,
		models.LogTypeAPIResponse,
		models.LogTypeEnd,
	} {
		entry := models.ProcessingLogEntry{
			Type:      logType,
			Message:   fmt.Sprintf("step %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := logs.Append(ctx, "url_1", entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := logs.GetByURL(ctx, "url_1")
	if err != nil {
		t.Fatalf("GetByURL failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("GetByURL returned %d entries, want 4", len(entries))
	}

	// Chronological order, start first and end last
	if entries[0].Type != models.LogTypeStart {
		t.Errorf("first entry type = %s, want %s", entries[0].Type, models.LogTypeStart)
	}
	if entries[3].Type != models.LogTypeEnd {
		t.Errorf("last entry type = %s, want %s", entries[3].Type, models.LogTypeEnd)
	}
	if entries[0].AssociatedURLID != "url_1" {
		t.Errorf("AssociatedURLID = %q", entries[0].AssociatedURLID)
	}
}

func TestProcessingLogStorage_ScopedToRecord(t *testing.T) {
	ctx := context.Background()
	logs := openTestManager(t).ProcessingLogs()

	if err := logs.Append(ctx, "url_1", models.ProcessingLogEntry{Type: models.LogTypeStart, Message: "a"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := logs.Append(ctx, "url_2", models.ProcessingLogEntry{Type: models.LogTypeStart, Message: "b"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := logs.GetByURL(ctx, "url_1")
	if err != nil {
		t.Fatalf("GetByURL failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "a" {
		t.Errorf("GetByURL returned %v", entries)
	}

	count, err := logs.CountByURL(ctx, "url_2")
	if err != nil {
		t.Fatalf("CountByURL failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountByURL = %d, want 1", count)
	}
}

func TestProcessingLogStorage_DeleteByURL(t *testing.T) {
	ctx := context.Background()
	logs := openTestManager(t).ProcessingLogs()

	for i := 0; i < 3; i++ {
		if err := logs.Append(ctx, "url_1", models.ProcessingLogEntry{Type: models.LogTypeInfo, Message: "x"}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if err := logs.DeleteByURL(ctx, "url_1"); err != nil {
		t.Fatalf("DeleteByURL failed: %v", err)
	}

	entries, err := logs.GetByURL(ctx, "url_1")
	if err != nil {
		t.Fatalf("GetByURL failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("GetByURL returned %d entries after delete", len(entries))
	}
}
