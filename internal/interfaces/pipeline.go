package interfaces

import (
	"context"

	"github.com/ternarybob/repono/internal/models"
)

// Pipeline turns a pending record into summarized or failed. Process must
// never leave the record pending once it returns.
type Pipeline interface {
	Process(ctx context.Context, urlID, account string) error
}

// JobQueue accepts processing jobs without the caller waiting for completion
type JobQueue interface {
	Enqueue(urlID, account string) error
	Start()
	Stop()
}

// EventPublisher pushes status-transition events to connected dashboards.
// Implementations must never block the pipeline.
type EventPublisher interface {
	Publish(event models.Event)
}
