// Package filestore provides a LogStore persisting each log as a file under a queue dir per output
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
)

// Store persists logs on local disk, surviving restarts of the process
type Store struct {
	logger        logger.Logger
	rootPath      string
	spaceLimit    int64
	metricFactory *base.MetricFactory
	lock          sync.Mutex
	queues        map[string]*recordQueue
	closed        bool
}

var errStoreClosed = errors.New("store closed")

// NewStore creates a Store under the given root path
//
// spaceLimit is the max total size of record files for each output
func NewStore(parentLogger logger.Logger, rootPath string, spaceLimit int64, metricFactory *base.MetricFactory) (*Store, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root dir '%s': %w", rootPath, err)
	}
	return &Store{
		logger:        parentLogger.WithField(defs.LabelComponent, "FileStore"),
		rootPath:      rootPath,
		spaceLimit:    spaceLimit,
		metricFactory: metricFactory.NewSubFactory("filestore_", nil, nil),
		lock:          sync.Mutex{},
		queues:        make(map[string]*recordQueue),
		closed:        false,
	}, nil
}

// Retrieve loads all logs persisted for the output, including those from previous processes
func (store *Store) Retrieve(_ context.Context, outputID string) ([]base.LogRecord, error) {
	queue, err := store.getQueue(outputID)
	if err != nil {
		return nil, err
	}
	return queue.Load()
}

// Add persists a log for the output
func (store *Store) Add(_ context.Context, outputID string, log base.LogRecord) error {
	queue, err := store.getQueue(outputID)
	if err != nil {
		return err
	}
	return queue.Save(log)
}

// Remove deletes persisted logs of the output
func (store *Store) Remove(_ context.Context, outputID string, logs []base.LogRecord) error {
	queue, err := store.getQueue(outputID)
	if err != nil {
		return err
	}
	return queue.Delete(logs)
}

// Close closes all queue dirs. Later calls on the store fail with errStoreClosed.
func (store *Store) Close() error {
	store.lock.Lock()
	defer store.lock.Unlock()
	store.closed = true
	for outputID, queue := range store.queues {
		queue.Close()
		delete(store.queues, outputID)
	}
	return nil
}

func (store *Store) getQueue(outputID string) (*recordQueue, error) {
	store.lock.Lock()
	defer store.lock.Unlock()

	if store.closed {
		return nil, errStoreClosed
	}
	if queue, ok := store.queues[outputID]; ok {
		return queue, nil
	}

	qlogger := store.logger.WithField(defs.LabelName, outputID)
	path, merr := makeQueueDir(qlogger, store.rootPath, outputID)
	if merr != nil {
		return nil, merr
	}
	metrics := newRecordQueueMetrics(store.metricFactory.NewSubFactory("", []string{"output"}, []string{outputID}))
	queue, oerr := openRecordQueue(qlogger, path, store.spaceLimit, metrics)
	if oerr != nil {
		return nil, oerr
	}
	qlogger.Infof("opened queue dir path=%s existing=%d", path, len(queue.entries))
	store.queues[outputID] = queue
	return queue, nil
}
