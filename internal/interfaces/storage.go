package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/repono/internal/models"
)

// URLStorage persists URLRecord rows
type URLStorage interface {
	Insert(ctx context.Context, record *models.URLRecord) error
	Get(ctx context.Context, id string) (*models.URLRecord, error)
	Update(ctx context.Context, record *models.URLRecord) error
	Delete(ctx context.Context, id string) error

	// List returns records for an account, newest first. status filters when
	// non-empty. limit <= 0 means no limit.
	List(ctx context.Context, account string, status models.URLStatus, limit, offset int) ([]models.URLRecord, error)
	Count(ctx context.Context, account string) (int, error)

	// Transition applies mutate to the record only if its current status is
	// one of from, refreshing UpdatedAt. Returns false when the record was
	// already transitioned by a concurrent invocation (compare-and-swap on
	// status, guarantees at-most-once completion).
	Transition(ctx context.Context, id string, from []models.URLStatus, mutate func(record *models.URLRecord)) (bool, error)

	// ListStalePending returns pending records whose UpdatedAt is older than
	// the cutoff. account scopes the scan; empty means all accounts.
	ListStalePending(ctx context.Context, account string, cutoff time.Time) ([]models.URLRecord, error)
}

// ProcessingLogStorage persists the append-only processing trace
type ProcessingLogStorage interface {
	Append(ctx context.Context, urlID string, entry models.ProcessingLogEntry) error
	GetByURL(ctx context.Context, urlID string) ([]models.ProcessingLogEntry, error)
	DeleteByURL(ctx context.Context, urlID string) error
	CountByURL(ctx context.Context, urlID string) (int, error)
}

// APIKeyStorage persists client credentials
type APIKeyStorage interface {
	Put(ctx context.Context, key *models.APIKey) error
	Resolve(ctx context.Context, key string) (*models.APIKey, error)
	Delete(ctx context.Context, key string) error
}

// StorageManager provides access to all storage services
type StorageManager interface {
	URLs() URLStorage
	ProcessingLogs() ProcessingLogStorage
	APIKeys() APIKeyStorage
	Close() error
}
