package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
)

// Manager bundles the storage services over one Badger connection
type Manager struct {
	db      *BadgerDB
	urls    interfaces.URLStorage
	logs    interfaces.ProcessingLogStorage
	apiKeys interfaces.APIKeyStorage
	logger  arbor.ILogger
}

// NewManager opens the database and wires up the storage services
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:      db,
		urls:    NewURLStorage(db, logger),
		logs:    NewProcessingLogStorage(db, logger),
		apiKeys: NewAPIKeyStorage(db, logger),
		logger:  logger,
	}, nil
}

// URLs returns the URL record storage
func (m *Manager) URLs() interfaces.URLStorage {
	return m.urls
}

// ProcessingLogs returns the processing log storage
func (m *Manager) ProcessingLogs() interfaces.ProcessingLogStorage {
	return m.logs
}

// APIKeys returns the API key storage
func (m *Manager) APIKeys() interfaces.APIKeyStorage {
	return m.apiKeys
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
