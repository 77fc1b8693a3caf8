package eventstore

import (
	"context"
	"time"
)

// Store persists build events.
type Store interface {
	// Append adds an event. Its ID is assigned by the store.
	Append(ctx context.Context, e Event) error

	// GetByBuildID returns the events of one build in the order they were appended.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// GetRange returns the events with timestamps in [start, end] in append order.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}
