package base

import (
	"context"
)

// LogStore persists log records per output until they are delivered
//
// Implementations must be safe for concurrent use. Calls are made from background goroutines and never
// from the serial loop of an output.
type LogStore interface {
	// Retrieve returns all records persisted for the output, in the order they were added
	Retrieve(ctx context.Context, outputID string) ([]LogRecord, error)

	// Add persists one record for the output
	Add(ctx context.Context, outputID string, log LogRecord) error

	// Remove deletes delivered records of the output; unknown records are ignored
	Remove(ctx context.Context, outputID string, logs []LogRecord) error

	// Close releases resources
	Close() error
}
