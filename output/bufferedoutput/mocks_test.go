package bufferedoutput

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/relex/slog-shipper/base"
	"github.com/stretchr/testify/assert"
)

var errTestUpstream = errors.New("upstream unavailable")

type fakeStore struct {
	lock         sync.Mutex
	logs         map[string][]base.LogRecord
	addErr       error
	retrieveGate chan struct{} // if not nil, Retrieve waits until closed
}

func newFakeStore() *fakeStore {
	return &fakeStore{logs: make(map[string][]base.LogRecord)}
}

func (store *fakeStore) Retrieve(ctx context.Context, outputID string) ([]base.LogRecord, error) {
	if store.retrieveGate != nil {
		select {
		case <-store.retrieveGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	store.lock.Lock()
	defer store.lock.Unlock()
	return append([]base.LogRecord(nil), store.logs[outputID]...), nil
}

func (store *fakeStore) Add(_ context.Context, outputID string, log base.LogRecord) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	if store.addErr != nil {
		return store.addErr
	}
	store.logs[outputID] = append(store.logs[outputID], log)
	return nil
}

func (store *fakeStore) Remove(_ context.Context, outputID string, logs []base.LogRecord) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	removed := make(map[string]bool, len(logs))
	for _, log := range logs {
		removed[log.ID] = true
	}
	remaining := store.logs[outputID][:0]
	for _, log := range store.logs[outputID] {
		if !removed[log.ID] {
			remaining = append(remaining, log)
		}
	}
	store.logs[outputID] = remaining
	return nil
}

func (store *fakeStore) Close() error {
	return nil
}

func (store *fakeStore) Count(outputID string) int {
	store.lock.Lock()
	defer store.lock.Unlock()
	return len(store.logs[outputID])
}

type fakeWriter struct {
	clock    clock.Clock
	lock     sync.Mutex
	failures int // number of attempts to fail from now on, negative for always
	attempts []time.Time
	written  []base.LogChunk
}

func (writer *fakeWriter) WriteChunk(_ context.Context, chunk base.LogChunk) error {
	writer.lock.Lock()
	defer writer.lock.Unlock()
	writer.attempts = append(writer.attempts, writer.clock.Now())
	if writer.failures != 0 {
		if writer.failures > 0 {
			writer.failures--
		}
		return errTestUpstream
	}
	writer.written = append(writer.written, chunk)
	return nil
}

func (writer *fakeWriter) Close() error {
	return nil
}

func (writer *fakeWriter) Attempts() []time.Time {
	writer.lock.Lock()
	defer writer.lock.Unlock()
	return append([]time.Time(nil), writer.attempts...)
}

func (writer *fakeWriter) Written() []base.LogChunk {
	writer.lock.Lock()
	defer writer.lock.Unlock()
	return append([]base.LogChunk(nil), writer.written...)
}

func newTestLogs(num int) []base.LogRecord {
	logs := make([]base.LogRecord, num)
	for i := range logs {
		logs[i] = base.NewLogRecord("test.app", time.Unix(int64(1000+i), 0), "message", nil)
	}
	return logs
}

func waitEvent(t *testing.T, events <-chan base.OutputEvent, kind base.OutputEventKind) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return
			}
		case <-timeout:
			assert.Fail(t, "timeout waiting for event", kind.String())
			return
		}
	}
}

// nextEventKinds reads the next num events in order
func nextEventKinds(t *testing.T, events <-chan base.OutputEvent, num int) []base.OutputEventKind {
	t.Helper()
	kinds := make([]base.OutputEventKind, 0, num)
	timeout := time.After(3 * time.Second)
	for len(kinds) < num {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
		case <-timeout:
			assert.Fail(t, "timeout waiting for events", "got %v", kinds)
			return kinds
		}
	}
	return kinds
}

func countEvents(events <-chan base.OutputEvent) map[base.OutputEventKind]int {
	counts := make(map[base.OutputEventKind]int)
	for {
		select {
		case ev := <-events:
			counts[ev.Kind]++
		default:
			return counts
		}
	}
}

// advance moves the mock clock forward second by second, letting background goroutines run in between
func advance(mock *clock.Mock, out *Output, seconds int) {
	for i := 0; i < seconds; i++ {
		mock.Add(time.Second)
		time.Sleep(20 * time.Millisecond)
		out.Stats()
	}
}
