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

// ErrURLNotFound is returned when no record exists for the requested id
var ErrURLNotFound = errors.New("url record not found")

// URLStorage implements the URLStorage interface for Badger
type URLStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewURLStorage creates a new URLStorage instance
func NewURLStorage(db *BadgerDB, logger arbor.ILogger) interfaces.URLStorage {
	return &URLStorage{
		db:     db,
		logger: logger,
	}
}

func (s *URLStorage) Insert(ctx context.Context, record *models.URLRecord) error {
	if err := s.db.Store().Insert(record.ID, record); err != nil {
		return fmt.Errorf("failed to insert url record: %w", err)
	}
	return nil
}

func (s *URLStorage) Get(ctx context.Context, id string) (*models.URLRecord, error) {
	var record models.URLRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get url record: %w", err)
	}
	return &record, nil
}

func (s *URLStorage) Update(ctx context.Context, record *models.URLRecord) error {
	record.Touch()
	if err := s.db.Store().Update(record.ID, record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrURLNotFound
		}
		return fmt.Errorf("failed to update url record: %w", err)
	}
	return nil
}

func (s *URLStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.URLRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrURLNotFound
		}
		return fmt.Errorf("failed to delete url record: %w", err)
	}
	return nil
}

func (s *URLStorage) List(ctx context.Context, account string, status models.URLStatus, limit, offset int) ([]models.URLRecord, error) {
	query := badgerhold.Where("Account").Eq(account).Index("Account")
	if status != "" {
		query = query.And("Status").Eq(status)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var records []models.URLRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list url records: %w", err)
	}
	return records, nil
}

func (s *URLStorage) Count(ctx context.Context, account string) (int, error) {
	count, err := s.db.Store().Count(&models.URLRecord{}, badgerhold.Where("Account").Eq(account).Index("Account"))
	if err != nil {
		return 0, fmt.Errorf("failed to count url records: %w", err)
	}
	return int(count), nil
}

// Transition applies mutate only when the record's current status is one of
// from. Badger transactions make the read-check-write atomic, so a record a
// concurrent pipeline invocation already completed is left untouched.
func (s *URLStorage) Transition(ctx context.Context, id string, from []models.URLStatus, mutate func(record *models.URLRecord)) (bool, error) {
	allowed := make([]interface{}, 0, len(from))
	for _, st := range from {
		allowed = append(allowed, st)
	}

	applied := false
	query := badgerhold.Where(badgerhold.Key).Eq(id).And("Status").In(allowed...)
	err := s.db.Store().UpdateMatching(&models.URLRecord{}, query, func(record interface{}) error {
		r, ok := record.(*models.URLRecord)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		mutate(r)
		r.Touch()
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to transition url record: %w", err)
	}
	return applied, nil
}

func (s *URLStorage) ListStalePending(ctx context.Context, account string, cutoff time.Time) ([]models.URLRecord, error) {
	query := badgerhold.Where("Status").Eq(models.URLStatusPending).Index("Status").
		And("UpdatedAt").Lt(cutoff)
	if account != "" {
		query = query.And("Account").Eq(account)
	}

	var records []models.URLRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list stale pending records: %w", err)
	}
	return records, nil
}
