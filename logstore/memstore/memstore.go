// Package memstore provides a LogStore kept in process memory, for tests and for hosts without durable storage
package memstore

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"golang.org/x/exp/slices"
)

// Store keeps logs of each output in memory
type Store struct {
	logger  logger.Logger
	outputs *xsync.MapOf[*outputLogs]
}

type outputLogs struct {
	lock sync.Mutex
	logs []base.LogRecord
}

// NewStore creates an empty Store
func NewStore(parentLogger logger.Logger) *Store {
	return &Store{
		logger:  parentLogger.WithField(defs.LabelComponent, "MemoryStore"),
		outputs: xsync.NewMapOf[*outputLogs](),
	}
}

// Retrieve returns a copy of logs stored for the output
func (store *Store) Retrieve(_ context.Context, outputID string) ([]base.LogRecord, error) {
	queue, ok := store.outputs.Load(outputID)
	if !ok {
		return nil, nil
	}
	queue.lock.Lock()
	defer queue.lock.Unlock()
	return slices.Clone(queue.logs), nil
}

// Add appends a log for the output
func (store *Store) Add(_ context.Context, outputID string, log base.LogRecord) error {
	queue, _ := store.outputs.LoadOrStore(outputID, &outputLogs{})
	queue.lock.Lock()
	defer queue.lock.Unlock()
	queue.logs = append(queue.logs, log)
	return nil
}

// Remove deletes logs of the output by their IDs
func (store *Store) Remove(_ context.Context, outputID string, logs []base.LogRecord) error {
	queue, ok := store.outputs.Load(outputID)
	if !ok {
		return nil
	}
	removing := make(map[string]struct{}, len(logs))
	for _, log := range logs {
		removing[log.ID] = struct{}{}
	}
	queue.lock.Lock()
	defer queue.lock.Unlock()
	remaining := queue.logs[:0]
	for _, log := range queue.logs {
		if _, found := removing[log.ID]; !found {
			remaining = append(remaining, log)
		}
	}
	queue.logs = remaining
	return nil
}

// Count returns the number of logs stored for the output
func (store *Store) Count(outputID string) int {
	queue, ok := store.outputs.Load(outputID)
	if !ok {
		return 0
	}
	queue.lock.Lock()
	defer queue.lock.Unlock()
	return len(queue.logs)
}

// Close discards all logs
func (store *Store) Close() error {
	total := 0
	store.outputs.Range(func(outputID string, queue *outputLogs) bool {
		queue.lock.Lock()
		total += len(queue.logs)
		queue.lock.Unlock()
		store.outputs.Delete(outputID)
		return true
	})
	if total > 0 {
		store.logger.Infof("discarded %d undelivered logs", total)
	}
	return nil
}
