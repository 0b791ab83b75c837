package bufferedoutput

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
)

// State is the lifecycle state of Output
type State int

// Values of State
const (
	StateStopped State = iota
	StateRunning
	StateSuspended
	StateClosed
)

func (state State) String() string {
	switch state {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(state))
	}
}

// Args is the parameters to create an Output
type Args struct {
	Name     string           // Unique name, used as the output ID in LogStore
	Settings Settings         // Effective options, see ParseSettings
	Store    base.LogStore    // Durable storage of logs until delivery
	Writer   base.ChunkWriter // Transport to upstream
	Events   base.EventSink   // Optional receiver of lifecycle and progress notifications
	Clock    clock.Clock      // Optional clock for ticking and retry delays, real clock if nil
}

// Stats is a snapshot of the internal state of Output
type Stats struct {
	State          State
	BufferedLogs   int
	InflightChunks int
	PendingRetries int
}

// Output buffers emitted logs, flushes them in chunks to a ChunkWriter and retries failed chunks with exponential backoff
//
// All states are owned by a single loop goroutine. Public methods only post actions to the loop and never wait for
// I/O; results of store and upstream operations are delivered back to the loop as actions.
type Output struct {
	logger    logger.Logger
	name      string
	settings  Settings
	store     base.LogStore
	writer    base.ChunkWriter
	events    base.EventSink
	clock     clock.Clock
	metrics   outputMetrics
	ctx       context.Context
	cancel    context.CancelFunc
	actions   chan func()
	closing   *channels.SignalAwaitable
	stopped   *channels.SignalAwaitable
	closeOnce sync.Once

	// owned by loop
	state           State
	buffer          *logBuffer
	chunks          *chunkWriter
	recentFlushTime time.Time
	ticker          *clock.Ticker
	tickerSerial    int // incremented whenever ticker is replaced or removed
}

// NewOutput creates an Output in the stopped state and launches its loop
func NewOutput(parentLogger logger.Logger, args Args, metricFactory *base.MetricFactory) *Output {
	clk := args.Clock
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	out := &Output{
		logger:          parentLogger.WithFields(logger.Fields{defs.LabelComponent: "BufferedOutput", defs.LabelName: args.Name}),
		name:            args.Name,
		settings:        args.Settings,
		store:           args.Store,
		writer:          args.Writer,
		events:          args.Events,
		clock:           clk,
		metrics:         newOutputMetrics(metricFactory, args.Name),
		ctx:             ctx,
		cancel:          cancel,
		actions:         make(chan func(), defs.OutputActionQueueSize),
		closing:         channels.NewSignalAwaitable(),
		stopped:         channels.NewSignalAwaitable(),
		closeOnce:       sync.Once{},
		state:           StateStopped,
		buffer:          newLogBuffer(),
		chunks:          nil,
		recentFlushTime: time.Time{},
		ticker:          nil,
		tickerSerial:    0,
	}
	out.chunks = newChunkWriter(out)
	go out.run()
	return out
}

// Name returns the name of this output, also used as the output ID in LogStore
func (out *Output) Name() string {
	return out.name
}

// Settings returns the effective options
func (out *Output) Settings() Settings {
	return out.settings
}

// Start reloads persisted logs into buffer and starts periodic flushing
func (out *Output) Start() {
	out.post(func() {
		out.start(base.OutputStarted)
	})
}

// Resume does the same as Start, after Suspend
func (out *Output) Resume() {
	out.post(func() {
		out.start(base.OutputResumed)
	})
}

// Suspend stops periodic flushing. Buffered logs are kept and scheduled retries continue.
func (out *Output) Suspend() {
	out.post(func() {
		out.removeTicker()
		if out.state == StateRunning {
			out.state = StateSuspended
		}
		out.logger.Infof("suspended with buffered=%d inflight=%d", out.buffer.Len(), out.chunks.NumInflight())
	})
}

// EmitLog appends a log to buffer and persists it in LogStore
//
// EmitLog never blocks. If the action queue is full, the log is only persisted and left for the next start or resume
// to retrieve.
func (out *Output) EmitLog(log base.LogRecord) {
	select {
	case out.actions <- func() { out.emitLog(log) }:
	case <-out.closing.Channel():
	default:
		out.metrics.overflowedLogsTotal.Inc()
		go out.persistOverflowed(log)
	}
}

// Flush flushes buffered logs up to the log limit as a chunk
func (out *Output) Flush() {
	out.post(out.flush)
}

// Stats returns a snapshot of the internal state
func (out *Output) Stats() Stats {
	result := make(chan Stats, 1)
	out.post(func() {
		result <- Stats{
			State:          out.state,
			BufferedLogs:   out.buffer.Len(),
			InflightChunks: out.chunks.NumInflight(),
			PendingRetries: out.chunks.NumPendingRetries(),
		}
	})
	select {
	case stats := <-result:
		return stats
	case <-out.stopped.Channel():
		return Stats{State: StateClosed}
	}
}

// Stopped returns an Awaitable which is signaled when the loop ends after Close
func (out *Output) Stopped() channels.Awaitable {
	return out.stopped
}

// Close stops ticking and the loop, and discards scheduled retries and results of pending operations
//
// Close is idempotent. It must not be called from an EventSink, which runs inside the loop.
func (out *Output) Close() {
	out.closeOnce.Do(func() {
		out.closing.Signal()
		if !out.stopped.Wait(defs.OutputCloseTimeout) {
			out.logger.Errorf("BUG: timeout waiting for loop to stop")
		}
	})
}

func (out *Output) run() {
	defer out.stopped.Signal()
	out.logger.Infof("created with %s", out.settings)
	for {
		var tickChan <-chan time.Time
		if out.ticker != nil {
			tickChan = out.ticker.C
		}
		select {
		case action := <-out.actions:
			action()
		case <-tickChan:
			out.tick()
		case <-out.closing.Channel():
			out.teardown()
			return
		}
	}
}

// post delivers an action to the loop, or discards it if the output is closed
//
// It waits while the action queue is full, so it must not be called from inside the loop.
func (out *Output) post(action func()) {
	select {
	case out.actions <- action:
	case <-out.closing.Channel():
	}
}

func (out *Output) teardown() {
	out.removeTicker()
	numRetries := out.chunks.StopRetries()
	out.cancel()
	out.state = StateClosed
	out.metrics.bufferedLogs.Set(0)
	out.metrics.inflightChunks.Set(0)
	out.logger.Infof("closed with buffered=%d inflight=%d cancelledRetries=%d",
		out.buffer.Len(), out.chunks.NumInflight(), numRetries)
}

func (out *Output) start(kind base.OutputEventKind) {
	out.buffer.Clear()
	out.metrics.bufferedLogs.Set(0)
	out.state = StateRunning
	out.installTicker()
	serial := out.tickerSerial

	out.logger.Infof("%s: retrieving persisted logs", kind)
	go func() {
		ctx, cancel := context.WithTimeout(out.ctx, defs.OutputStoreTimeout)
		logs, err := out.store.Retrieve(ctx, out.name)
		cancel()
		out.post(func() {
			out.onRetrieved(kind, serial, logs, err)
		})
	}()
}

func (out *Output) onRetrieved(kind base.OutputEventKind, serial int, logs []base.LogRecord, err error) {
	if err != nil {
		out.logger.Warnf("failed to retrieve persisted logs: %s", err.Error())
		out.metrics.storeErrorsRetrieve.Inc()
	}
	out.emit(kind)

	// suspended, closed or restarted before retrieval completed
	if out.ticker == nil || serial != out.tickerSerial {
		out.logger.Infof("%s: discard %d retrieved logs as ticker has been changed", kind, len(logs))
		return
	}

	numAdded := 0
	for _, log := range logs {
		if out.buffer.Contains(log.ID) || out.chunks.ContainsLog(log.ID) {
			continue
		}
		out.buffer.Append(log)
		numAdded++
	}
	out.metrics.recoveredLogsTotal.Add(float64(numAdded))
	out.metrics.bufferedLogs.Add(float64(numAdded))
	out.logger.Infof("%s: recovered logs=%d (retrieved %d)", kind, numAdded, len(logs))
	out.flush()
}

func (out *Output) emitLog(log base.LogRecord) {
	if out.buffer.Contains(log.ID) {
		out.logger.Warnf("BUG: ignored duplicate log %s", log)
		return
	}
	out.buffer.Append(log)
	out.metrics.emittedLogsTotal.Inc()
	out.metrics.bufferedLogs.Inc()

	go func() {
		ctx, cancel := context.WithTimeout(out.ctx, defs.OutputStoreTimeout)
		err := out.store.Add(ctx, out.name, log)
		cancel()
		out.post(func() {
			out.onStored(log, err)
		})
	}()
}

func (out *Output) persistOverflowed(log base.LogRecord) {
	ctx, cancel := context.WithTimeout(out.ctx, defs.OutputStoreTimeout)
	defer cancel()
	if err := out.store.Add(ctx, out.name, log); err != nil {
		out.logger.Warnf("failed to persist overflowed log %s: %s", log, err.Error())
		out.metrics.storeErrorsAdd.Inc()
	}
}

func (out *Output) onStored(log base.LogRecord, err error) {
	if err != nil {
		out.logger.Warnf("failed to persist log %s: %s", log, err.Error())
		out.metrics.storeErrorsAdd.Inc()
	}
	if out.buffer.Len() >= out.settings.LogLimit {
		out.flush()
	}
}

func (out *Output) tick() {
	if out.clock.Now().Sub(out.recentFlushTime) >= out.settings.FlushInterval {
		out.flush()
	}
}

func (out *Output) flush() {
	out.recentFlushTime = out.clock.Now()
	if out.buffer.Len() == 0 {
		return
	}

	logs := out.buffer.TakeFront(out.settings.LogLimit)
	chunk := base.NewLogChunk(logs)
	out.metrics.bufferedLogs.Sub(float64(len(logs)))
	out.metrics.flushesTotal.Inc()
	out.metrics.flushedLogsTotal.Add(float64(len(logs)))
	out.logger.Debugf("flush chunk %s, remaining=%d", chunk, out.buffer.Len())

	out.chunks.Dispatch(chunk)
	out.emit(base.OutputFlushed)
}

func (out *Output) removeFromStore(logs []base.LogRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(out.ctx, defs.OutputStoreTimeout)
		defer cancel()
		if err := out.store.Remove(ctx, out.name, logs); err != nil {
			out.logger.Warnf("failed to remove %d delivered logs from store: %s", len(logs), err.Error())
			out.metrics.storeErrorsRemove.Inc()
		}
	}()
}

func (out *Output) installTicker() {
	if out.ticker != nil {
		out.ticker.Stop()
	}
	out.ticker = out.clock.Ticker(defs.OutputTickInterval)
	out.tickerSerial++
}

func (out *Output) removeTicker() {
	if out.ticker == nil {
		return
	}
	out.ticker.Stop()
	out.ticker = nil
	out.tickerSerial++
}

func (out *Output) emit(kind base.OutputEventKind) {
	if out.events == nil {
		return
	}
	out.events.OnOutputEvent(base.OutputEvent{Kind: kind, Source: out.name})
}
