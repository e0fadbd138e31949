package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	"github.com/ternarybob/repono/internal/services/providers"
	"github.com/ternarybob/repono/internal/storage/badger"
)

// fakeProvider returns a canned completion or error and counts calls
type fakeProvider struct {
	content string
	err     error
	calls   int64
}

func (f *fakeProvider) CreateChatCompletion(ctx context.Context, request *interfaces.ChatRequest) (*interfaces.ChatCompletion, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.ChatCompletion{
		ID: "chatcmpl-test",
		Choices: []interfaces.ChatChoice{
			{Message: interfaces.ChatMessage{Role: "assistant", Content: f.content}},
		},
	}, nil
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func openTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	manager, err := badger.NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return manager
}

func newTestPipeline(t *testing.T, storage interfaces.StorageManager, selector interfaces.ProviderSelector, llm *common.LLMConfig) *Service {
	t.Helper()
	return NewService(storage.URLs(), storage.ProcessingLogs(), selector, nil, nil, llm, common.GetLogger())
}

func insertPending(t *testing.T, storage interfaces.StorageManager, id, account string) {
	t.Helper()
	now := time.Now().UTC()
	err := storage.URLs().Insert(context.Background(), &models.URLRecord{
		ID:        id,
		Account:   account,
		URL:       "https://example.com",
		Status:    models.URLStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func logTypes(t *testing.T, storage interfaces.StorageManager, urlID string) []models.LogType {
	t.Helper()
	entries, err := storage.ProcessingLogs().GetByURL(context.Background(), urlID)
	if err != nil {
		t.Fatalf("GetByURL failed: %v", err)
	}
	types := make([]models.LogType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Type)
	}
	return types
}

func hasLogType(types []models.LogType, want models.LogType) bool {
	for _, tp := range types {
		if tp == want {
			return true
		}
	}
	return false
}

func TestProcess_Success(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "Title: Example Domain\n\nSummary: A documentation domain.\n\nTags: example, docs"}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, nil)

	insertPending(t, storage, "url_1", "alice")
	if err := svc.Process(context.Background(), "url_1", "alice"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	record, err := storage.URLs().Get(context.Background(), "url_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Status != models.URLStatusSummarized {
		t.Fatalf("Status = %s, want summarized", record.Status)
	}
	if record.Title != "Example Domain" {
		t.Errorf("Title = %q", record.Title)
	}
	if record.Summary != "A documentation domain." {
		t.Errorf("Summary = %q", record.Summary)
	}
	if len(record.Tags) != 2 || record.Tags[0] != "example" || record.Tags[1] != "docs" {
		t.Errorf("Tags = %v", record.Tags)
	}
	if record.Debug == nil || record.Debug.RawResponse == "" || record.Debug.APIRequest == "" {
		t.Errorf("Debug = %+v, want populated request/response capture", record.Debug)
	}

	types := logTypes(t, storage, "url_1")
	for _, want := range []models.LogType{
		models.LogTypeStart,
		models.LogTypeAPIRequest,
		models.LogTypeAPIResponse,
		models.LogTypeRawResponse,
		models.LogTypeEnd,
	} {
		if !hasLogType(types, want) {
			t.Errorf("trace missing %s entry: %v", want, types)
		}
	}
}

func TestProcess_ExplicitTitlePreferred(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "Title: Parsed\n\nSummary: S\n\nTags: a"}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, nil)

	now := time.Now().UTC()
	if err := storage.URLs().Insert(context.Background(), &models.URLRecord{
		ID: "url_1", Account: "alice", URL: "https://example.com",
		Status: models.URLStatusPending, Title: "My Title",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := svc.Process(context.Background(), "url_1", "alice"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	record, _ := storage.URLs().Get(context.Background(), "url_1")
	if record.Title != "My Title" {
		t.Errorf("Title = %q, want submitter title preserved", record.Title)
	}
}

func TestProcess_MissingMarkersFallbackTitle(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "I could not access that page, sorry."}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, nil)

	insertPending(t, storage, "url_1", "alice")
	if err := svc.Process(context.Background(), "url_1", "alice"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// A parse miss is not a failure: the record still becomes summarized
	record, _ := storage.URLs().Get(context.Background(), "url_1")
	if record.Status != models.URLStatusSummarized {
		t.Fatalf("Status = %s, want summarized", record.Status)
	}
	if record.Title != FallbackTitle {
		t.Errorf("Title = %q, want %q", record.Title, FallbackTitle)
	}
	if record.Summary != "" {
		t.Errorf("Summary = %q, want empty", record.Summary)
	}
	if len(record.Tags) != 0 {
		t.Errorf("Tags = %v, want empty", record.Tags)
	}
}

func TestProcess_ProviderError(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{err: &providers.ProviderError{
		Provider: "fake", Kind: providers.ErrorKindHTTPStatus, StatusCode: 500, Message: "boom",
	}}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, nil)

	insertPending(t, storage, "url_1", "alice")
	if err := svc.Process(context.Background(), "url_1", "alice"); err == nil {
		t.Fatal("Process should surface the provider error")
	}

	record, _ := storage.URLs().Get(context.Background(), "url_1")
	if record.Status != models.URLStatusFailed {
		t.Fatalf("Status = %s, want failed", record.Status)
	}
	if record.ErrorDetails == "" {
		t.Error("ErrorDetails empty after provider failure")
	}

	types := logTypes(t, storage, "url_1")
	if !hasLogType(types, models.LogTypeError) || !hasLogType(types, models.LogTypeEnd) {
		t.Errorf("trace missing error/end entries: %v", types)
	}
}

func TestProcess_ConfigurationErrorSkipsProviderCall(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "unused"}
	selector := &providers.StaticSelector{Err: &providers.ProviderError{
		Provider: "openai", Kind: providers.ErrorKindConfiguration, Message: "API key not configured",
	}}
	svc := newTestPipeline(t, storage, selector, nil)

	insertPending(t, storage, "url_1", "alice")
	if err := svc.Process(context.Background(), "url_1", "alice"); err == nil {
		t.Fatal("Process should surface the configuration error")
	}

	if atomic.LoadInt64(&provider.calls) != 0 {
		t.Errorf("provider called %d times, want 0", provider.calls)
	}

	record, _ := storage.URLs().Get(context.Background(), "url_1")
	if record.Status != models.URLStatusFailed {
		t.Fatalf("Status = %s, want failed", record.Status)
	}
}

func TestProcess_OwnershipViolationAborts(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "Title: T\n\nSummary: S\n\nTags: a"}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, nil)

	insertPending(t, storage, "url_1", "alice")
	err := svc.Process(context.Background(), "url_1", "mallory")
	if !errors.Is(err, ErrNotOwned) {
		t.Fatalf("Process = %v, want ErrNotOwned", err)
	}

	// No state change and no trace entries for the aborted attempt
	record, _ := storage.URLs().Get(context.Background(), "url_1")
	if record.Status != models.URLStatusPending {
		t.Errorf("Status = %s, want pending untouched", record.Status)
	}
	if types := logTypes(t, storage, "url_1"); len(types) != 0 {
		t.Errorf("trace has %d entries after aborted attempt, want 0", len(types))
	}
}

func TestProcess_NonPendingRecordRejected(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "unused"}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, nil)

	now := time.Now().UTC()
	if err := storage.URLs().Insert(context.Background(), &models.URLRecord{
		ID: "url_1", Account: "alice", URL: "https://example.com",
		Status: models.URLStatusSummarized, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := svc.Process(context.Background(), "url_1", "alice"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("Process = %v, want ErrNotPending", err)
	}
	if atomic.LoadInt64(&provider.calls) != 0 {
		t.Errorf("provider called %d times, want 0", provider.calls)
	}
}

func TestProcess_JSONFormatDegradedFallback(t *testing.T) {
	storage := openTestStorage(t)
	provider := &fakeProvider{content: "definitely not a JSON object"}
	llm := &common.LLMConfig{ResponseFormat: "json"}
	svc := newTestPipeline(t, storage, &providers.StaticSelector{Client: provider}, llm)

	insertPending(t, storage, "url_1", "alice")
	if err := svc.Process(context.Background(), "url_1", "alice"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	record, _ := storage.URLs().Get(context.Background(), "url_1")
	if record.Status != models.URLStatusSummarized {
		t.Fatalf("Status = %s, want summarized via degraded fallback", record.Status)
	}
	if record.Summary != "definitely not a JSON object" {
		t.Errorf("Summary = %q, want truncated raw text", record.Summary)
	}
	if len(record.Tags) != 1 || record.Tags[0] != "parsed_from_text" {
		t.Errorf("Tags = %v, want the degraded marker tag", record.Tags)
	}
	if len(record.KeyPoints) != 1 {
		t.Errorf("KeyPoints = %v", record.KeyPoints)
	}
}
