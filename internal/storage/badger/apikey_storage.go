package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrAPIKeyNotFound is returned when a credential does not exist
var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKeyStorage implements the APIKeyStorage interface for Badger
type APIKeyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAPIKeyStorage creates a new APIKeyStorage instance
func NewAPIKeyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.APIKeyStorage {
	return &APIKeyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *APIKeyStorage) Put(ctx context.Context, key *models.APIKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Store().Upsert(key.Key, key); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	return nil
}

func (s *APIKeyStorage) Resolve(ctx context.Context, key string) (*models.APIKey, error) {
	var record models.APIKey
	if err := s.db.Store().Get(key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}
	return &record, nil
}

func (s *APIKeyStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(key, &models.APIKey{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}
