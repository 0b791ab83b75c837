package filestore

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/util"
	"github.com/vmihailenco/msgpack/v4"
	"golang.org/x/sys/unix"
)

const recordFileSuffix = ".rec"

var errSpaceLimit = errors.New("space limit reached")

// recordQueue manages the queue dir of one output, with one msgpack file per log record
//
// Filenames start with creation time and sequence so that sorted names follow the order of addition
type recordQueue struct {
	logger     logger.Logger
	dir        *os.File
	lock       sync.Mutex
	entries    map[string]recordFile // by log ID
	totalBytes int64
	spaceLimit int64
	sequence   uint32
	metrics    recordQueueMetrics
}

type recordFile struct {
	name string
	size int64
}

type recordQueueMetrics struct {
	persistentLogs     prometheus.Gauge
	persistentLogBytes prometheus.Gauge
	ioErrorsTotal      prometheus.Counter
}

func newRecordQueueMetrics(metricFactory *base.MetricFactory) recordQueueMetrics {
	metrics := recordQueueMetrics{
		persistentLogs:     metricFactory.AddOrGetGauge("persistent_logs", "Numbers of currently persistent logs", nil, nil),
		persistentLogBytes: metricFactory.AddOrGetGauge("persistent_log_bytes", "Bytes of currently persistent logs", nil, nil),
		ioErrorsTotal:      metricFactory.AddOrGetCounter("io_errors_total", "Numbers of I/O errors for record operations", nil, nil),
	}
	metrics.persistentLogs.Set(0)
	metrics.persistentLogBytes.Set(0)
	return metrics
}

func openRecordQueue(parentLogger logger.Logger, path string, spaceLimit int64, metrics recordQueueMetrics) (*recordQueue, error) {
	dir, oerr := os.Open(path)
	if oerr != nil {
		metrics.ioErrorsTotal.Inc()
		return nil, fmt.Errorf("failed to open queue dir '%s': %w", path, oerr)
	}
	queue := &recordQueue{
		logger:     parentLogger,
		dir:        dir,
		lock:       sync.Mutex{},
		entries:    make(map[string]recordFile),
		totalBytes: 0,
		spaceLimit: spaceLimit,
		sequence:   0,
		metrics:    metrics,
	}
	if _, err := queue.scan(); err != nil {
		dir.Close()
		return nil, err
	}
	return queue, nil
}

// scan indexes existing record files and returns their sorted names; must be called with lock held or before sharing
func (queue *recordQueue) scan() ([]string, error) {
	names, lerr := util.ListFileNamesAt(queue.dir, recordFileSuffix)
	if lerr != nil {
		queue.metrics.ioErrorsTotal.Inc()
		return nil, fmt.Errorf("failed to list queue dir: %w", lerr)
	}
	for _, name := range names {
		id := parseLogID(name)
		if id == "" {
			queue.logger.Warnf("skip unmatched record file name=%s", name)
			continue
		}
		if _, exists := queue.entries[id]; exists {
			continue
		}
		stat, serr := util.StatFileAt(queue.dir, name)
		if serr != nil {
			queue.metrics.ioErrorsTotal.Inc()
			queue.logger.Errorf("error stating record file name=%s: %s", name, serr.Error())
			continue
		}
		queue.entries[id] = recordFile{name: name, size: stat.Size}
		queue.totalBytes += stat.Size
		queue.metrics.persistentLogs.Inc()
		queue.metrics.persistentLogBytes.Add(float64(stat.Size))
	}
	return names, nil
}

// Load reads all records in the order of addition
func (queue *recordQueue) Load() ([]base.LogRecord, error) {
	queue.lock.Lock()
	defer queue.lock.Unlock()

	names, err := queue.scan()
	if err != nil {
		return nil, err
	}
	logs := make([]base.LogRecord, 0, len(names))
	for _, name := range names {
		data, rerr := util.ReadFileAt(queue.dir, name)
		if rerr != nil {
			queue.metrics.ioErrorsTotal.Inc()
			queue.logger.Errorf("error reading record file name=%s: %s", name, rerr.Error())
			continue
		}
		var log base.LogRecord
		if derr := msgpack.Unmarshal(data, &log); derr != nil {
			queue.metrics.ioErrorsTotal.Inc()
			queue.logger.Errorf("error decoding record file name=%s: %s", name, derr.Error())
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// Save writes a new record file unless the log is already saved
func (queue *recordQueue) Save(log base.LogRecord) error {
	data, merr := msgpack.Marshal(&log)
	if merr != nil {
		return fmt.Errorf("failed to encode log %s: %w", log, merr)
	}

	queue.lock.Lock()
	defer queue.lock.Unlock()

	if _, exists := queue.entries[log.ID]; exists {
		return nil
	}
	if queue.totalBytes+int64(len(data)) > queue.spaceLimit {
		return fmt.Errorf("cannot write log %s: %w", log, errSpaceLimit)
	}

	queue.sequence++
	name := fmt.Sprintf("%016x-%08x.%s%s", time.Now().UnixNano(), queue.sequence, log.ID, recordFileSuffix)
	if werr := util.WriteFileAt(queue.dir, name, data, 0o644); werr != nil {
		queue.metrics.ioErrorsTotal.Inc()
		return fmt.Errorf("failed to write record file name=%s: %w", name, werr)
	}
	queue.entries[log.ID] = recordFile{name: name, size: int64(len(data))}
	queue.totalBytes += int64(len(data))
	queue.metrics.persistentLogs.Inc()
	queue.metrics.persistentLogBytes.Add(float64(len(data)))
	return nil
}

// Delete removes record files of the given logs, ignoring logs not saved
func (queue *recordQueue) Delete(logs []base.LogRecord) error {
	queue.lock.Lock()
	defer queue.lock.Unlock()

	var firstErr error
	for _, log := range logs {
		entry, exists := queue.entries[log.ID]
		if !exists {
			continue
		}
		if uerr := util.UnlinkFileAt(queue.dir, entry.name); uerr != nil && !errors.Is(uerr, unix.ENOENT) {
			queue.metrics.ioErrorsTotal.Inc()
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete record file name=%s: %w", entry.name, uerr)
			}
			continue
		}
		delete(queue.entries, log.ID)
		queue.totalBytes -= entry.size
		queue.metrics.persistentLogs.Dec()
		queue.metrics.persistentLogBytes.Sub(float64(entry.size))
	}
	return firstErr
}

func (queue *recordQueue) Close() {
	queue.lock.Lock()
	defer queue.lock.Unlock()
	if err := queue.dir.Close(); err != nil {
		queue.metrics.ioErrorsTotal.Inc()
		queue.logger.Warnf("error closing dir: %s", err.Error())
	}
}

func parseLogID(filename string) string {
	stem := strings.TrimSuffix(filename, recordFileSuffix)
	sep := strings.IndexByte(stem, '.')
	if sep < 0 {
		return ""
	}
	return stem[sep+1:]
}
