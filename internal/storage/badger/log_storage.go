package badger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// logSequence is a global counter to ensure unique log keys even within the same nanosecond
var logSequence uint64

// ProcessingLogStorage implements the ProcessingLogStorage interface for Badger
type ProcessingLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProcessingLogStorage creates a new ProcessingLogStorage instance
func NewProcessingLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ProcessingLogStorage {
	return &ProcessingLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ProcessingLogStorage) Append(ctx context.Context, urlID string, entry models.ProcessingLogEntry) error {
	entry.AssociatedURLID = urlID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	// Composite key from timestamp plus an atomic sequence counter keeps
	// entries unique and insertion-ordered even within the same nanosecond
	seq := atomic.AddUint64(&logSequence, 1)
	key := fmt.Sprintf("%s_%d_%d", urlID, entry.CreatedAt.UnixNano(), seq)

	if err := s.db.Store().Insert(key, &entry); err != nil {
		return fmt.Errorf("failed to append processing log: %w", err)
	}
	return nil
}

func (s *ProcessingLogStorage) GetByURL(ctx context.Context, urlID string) ([]models.ProcessingLogEntry, error) {
	var entries []models.ProcessingLogEntry
	query := badgerhold.Where("AssociatedURLID").Eq(urlID).Index("AssociatedURLID").SortBy("CreatedAt")

	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to get processing logs: %w", err)
	}
	return entries, nil
}

func (s *ProcessingLogStorage) DeleteByURL(ctx context.Context, urlID string) error {
	if err := s.db.Store().DeleteMatching(&models.ProcessingLogEntry{}, badgerhold.Where("AssociatedURLID").Eq(urlID)); err != nil {
		return fmt.Errorf("failed to delete processing logs: %w", err)
	}
	return nil
}

func (s *ProcessingLogStorage) CountByURL(ctx context.Context, urlID string) (int, error) {
	count, err := s.db.Store().Count(&models.ProcessingLogEntry{}, badgerhold.Where("AssociatedURLID").Eq(urlID))
	if err != nil {
		return 0, fmt.Errorf("failed to count processing logs: %w", err)
	}
	return int(count), nil
}
