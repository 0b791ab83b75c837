package bufferedoutput

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOutputEnv struct {
	mock   *clock.Mock
	store  *fakeStore
	writer *fakeWriter
	events <-chan base.OutputEvent
	out    *Output
}

func newTestOutputEnv(t *testing.T, settings Settings) *testOutputEnv {
	mock := clock.NewMock()
	bus := base.NewEventBus()
	env := &testOutputEnv{
		mock:   mock,
		store:  newFakeStore(),
		writer: &fakeWriter{clock: mock},
		events: bus.SubscribeChannel(1000),
	}
	env.out = NewOutput(logger.Root(), Args{
		Name:     "main",
		Settings: settings,
		Store:    env.store,
		Writer:   env.writer,
		Events:   bus,
		Clock:    mock,
	}, base.NewMetricFactory("testbufferedoutput_", nil, nil))
	t.Cleanup(env.out.Close)
	return env
}

func TestOutputFlushByLogLimitAndTick(t *testing.T) {
	env := newTestOutputEnv(t, DefaultSettings())
	env.out.Start()
	waitEvent(t, env.events, base.OutputStarted)

	logs := newTestLogs(7)
	for _, log := range logs {
		env.out.EmitLog(log)
	}
	waitEvent(t, env.events, base.OutputWriteSucceeded)
	written := env.writer.Written()
	require.Len(t, written, 1)
	assert.Equal(t, logs[:5], written[0].Logs)
	assert.Equal(t, 0, written[0].RetryCount)
	assert.Eventually(t, func() bool { return env.store.Count("main") == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, env.out.Stats().BufferedLogs)

	advance(env.mock, env.out, 9)
	assert.Len(t, env.writer.Written(), 1)

	advance(env.mock, env.out, 1)
	waitEvent(t, env.events, base.OutputWriteSucceeded)
	written = env.writer.Written()
	require.Len(t, written, 2)
	assert.Equal(t, logs[5:], written[1].Logs)
	assert.Eventually(t, func() bool { return env.store.Count("main") == 0 }, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.out.metrics.writtenChunksTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(env.out.metrics.writtenLogsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.out.metrics.bufferedLogs))
}

func TestOutputRetryWithBackoff(t *testing.T) {
	env := newTestOutputEnv(t, Settings{LogLimit: 1, FlushInterval: 10 * time.Second, MaxRetryCount: 3})
	env.writer.failures = -1
	env.out.Start()
	waitEvent(t, env.events, base.OutputStarted)
	t0 := env.mock.Now()

	env.out.EmitLog(newTestLogs(1)[0])
	assert.Eventually(t, func() bool { return env.out.Stats().PendingRetries == 1 }, 3*time.Second, 10*time.Millisecond)

	advance(env.mock, env.out, 20)
	attempts := env.writer.Attempts()
	require.Len(t, attempts, 4)
	delays := make([]time.Duration, len(attempts))
	for i, tm := range attempts {
		delays[i] = tm.Sub(t0)
	}
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 6 * time.Second, 14 * time.Second}, delays)

	counts := countEvents(env.events)
	assert.Equal(t, 4, counts[base.OutputWriteAttempted])
	assert.Equal(t, 3, counts[base.OutputWriteRetried])
	assert.Equal(t, 0, counts[base.OutputWriteSucceeded])

	stats := env.out.Stats()
	assert.Equal(t, 0, stats.InflightChunks)
	assert.Equal(t, 0, stats.PendingRetries)
	assert.Equal(t, 1, env.store.Count("main"), "dropped logs stay in store")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.out.metrics.droppedChunksTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.out.metrics.retriesTotal))
}

func TestOutputRetryWhileSuspended(t *testing.T) {
	env := newTestOutputEnv(t, Settings{LogLimit: 1, FlushInterval: 10 * time.Second, MaxRetryCount: 3})
	env.writer.failures = 1
	env.out.Start()
	waitEvent(t, env.events, base.OutputStarted)

	log := newTestLogs(1)[0]
	env.out.EmitLog(log)
	assert.Eventually(t, func() bool { return env.out.Stats().PendingRetries == 1 }, 3*time.Second, 10*time.Millisecond)

	env.out.Suspend()
	assert.Equal(t, StateSuspended, env.out.Stats().State)

	advance(env.mock, env.out, 2)
	waitEvent(t, env.events, base.OutputWriteSucceeded)
	written := env.writer.Written()
	require.Len(t, written, 1)
	assert.Equal(t, 1, written[0].RetryCount)
	assert.Equal(t, []base.LogRecord{log}, written[0].Logs)
	assert.Eventually(t, func() bool { return env.store.Count("main") == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestOutputSuspendStopsTicking(t *testing.T) {
	env := newTestOutputEnv(t, Settings{LogLimit: 5, FlushInterval: 1 * time.Second, MaxRetryCount: 3})
	env.out.Start()
	waitEvent(t, env.events, base.OutputStarted)
	env.out.Suspend()

	env.out.EmitLog(newTestLogs(1)[0])
	advance(env.mock, env.out, 5)
	assert.Empty(t, env.writer.Written())
	assert.Equal(t, 1, env.out.Stats().BufferedLogs)

	env.out.Resume()
	waitEvent(t, env.events, base.OutputResumed)
	waitEvent(t, env.events, base.OutputWriteSucceeded)
	assert.Len(t, env.writer.Written(), 1)
	assert.Equal(t, StateRunning, env.out.Stats().State)
}

func TestOutputStartRecoversPersistedLogs(t *testing.T) {
	env := newTestOutputEnv(t, DefaultSettings())
	logs := newTestLogs(3)
	env.store.logs["main"] = append([]base.LogRecord(nil), logs...)

	env.out.Start()
	assert.Equal(t, []base.OutputEventKind{
		base.OutputStarted,
		base.OutputFlushed,
		base.OutputWriteAttempted,
		base.OutputWriteSucceeded,
	}, nextEventKinds(t, env.events, 4))
	written := env.writer.Written()
	require.Len(t, written, 1)
	assert.Equal(t, logs, written[0].Logs)
	assert.Eventually(t, func() bool { return env.store.Count("main") == 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(env.out.metrics.recoveredLogsTotal))
}

func TestOutputRetrievalAfterSuspend(t *testing.T) {
	env := newTestOutputEnv(t, DefaultSettings())
	env.store.logs["main"] = newTestLogs(2)
	env.store.retrieveGate = make(chan struct{})

	env.out.Start()
	env.out.Suspend()
	close(env.store.retrieveGate)
	waitEvent(t, env.events, base.OutputStarted)

	stats := env.out.Stats()
	assert.Equal(t, 0, stats.BufferedLogs)
	assert.Equal(t, 0, stats.InflightChunks)
	assert.Empty(t, env.writer.Written())
	assert.Equal(t, 2, env.store.Count("main"))

	env.out.Resume()
	waitEvent(t, env.events, base.OutputResumed)
	waitEvent(t, env.events, base.OutputWriteSucceeded)
	require.Len(t, env.writer.Written(), 1)
	assert.Len(t, env.writer.Written()[0].Logs, 2)
}

func TestOutputFlush(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		env := newTestOutputEnv(t, DefaultSettings())
		env.out.Start()
		waitEvent(t, env.events, base.OutputStarted)
		env.out.Flush()
		env.out.Stats()
		assert.Equal(t, 0, countEvents(env.events)[base.OutputFlushed])
		assert.Empty(t, env.writer.Written())
	})

	t.Run("empty buffer restarts interval", func(t *testing.T) {
		env := newTestOutputEnv(t, DefaultSettings())
		env.out.Start()
		waitEvent(t, env.events, base.OutputStarted)

		advance(env.mock, env.out, 5)
		env.out.Flush()
		env.out.EmitLog(newTestLogs(1)[0])
		assert.Eventually(t, func() bool { return env.store.Count("main") == 1 }, 3*time.Second, 10*time.Millisecond)

		advance(env.mock, env.out, 9)
		assert.Empty(t, env.writer.Attempts())
		assert.Equal(t, 1, env.out.Stats().BufferedLogs)

		advance(env.mock, env.out, 1)
		waitEvent(t, env.events, base.OutputWriteSucceeded)
		assert.Len(t, env.writer.Written(), 1)
	})

	t.Run("explicit flush before start", func(t *testing.T) {
		env := newTestOutputEnv(t, DefaultSettings())
		logs := newTestLogs(3)
		for _, log := range logs {
			env.out.EmitLog(log)
		}
		assert.Eventually(t, func() bool { return env.store.Count("main") == 3 }, 3*time.Second, 10*time.Millisecond)
		env.out.Flush()
		waitEvent(t, env.events, base.OutputFlushed)
		waitEvent(t, env.events, base.OutputWriteSucceeded)
		assert.Equal(t, logs, env.writer.Written()[0].Logs)
		assert.Equal(t, StateStopped, env.out.Stats().State)
	})
}

func TestOutputStoreFailure(t *testing.T) {
	env := newTestOutputEnv(t, Settings{LogLimit: 1, FlushInterval: 10 * time.Second, MaxRetryCount: 3})
	env.store.addErr = errors.New("disk full")
	env.out.Start()
	waitEvent(t, env.events, base.OutputStarted)

	env.out.EmitLog(newTestLogs(1)[0])
	waitEvent(t, env.events, base.OutputWriteSucceeded)
	assert.Len(t, env.writer.Written(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.out.metrics.storeErrorsAdd))
}

func TestOutputClose(t *testing.T) {
	env := newTestOutputEnv(t, Settings{LogLimit: 1, FlushInterval: 10 * time.Second, MaxRetryCount: 3})
	env.writer.failures = -1
	env.out.Start()
	waitEvent(t, env.events, base.OutputStarted)
	env.out.EmitLog(newTestLogs(1)[0])
	assert.Eventually(t, func() bool { return env.out.Stats().PendingRetries == 1 }, 3*time.Second, 10*time.Millisecond)

	env.out.Close()
	env.out.Close()
	assert.True(t, env.out.Stopped().Peek())
	assert.Equal(t, StateClosed, env.out.Stats().State)

	countEvents(env.events)
	env.out.EmitLog(newTestLogs(1)[0])
	env.out.Flush()
	advance(env.mock, env.out, 5)
	assert.Len(t, env.writer.Attempts(), 1)
	assert.Empty(t, countEvents(env.events))
}

func TestOutputEmitLogWithFullQueue(t *testing.T) {
	origQueueSize := defs.OutputActionQueueSize
	defs.OutputActionQueueSize = 2
	t.Cleanup(func() { defs.OutputActionQueueSize = origQueueSize })

	entered := make(chan struct{})
	gate := make(chan struct{})
	store := newFakeStore()
	out := NewOutput(logger.Root(), Args{
		Name:     "main",
		Settings: DefaultSettings(),
		Store:    store,
		Writer:   &fakeWriter{clock: clock.NewMock()},
		Events: base.EventSinkFunc(func(event base.OutputEvent) {
			if event.Kind == base.OutputStarted {
				close(entered)
				<-gate
			}
		}),
		Clock: clock.NewMock(),
	}, base.NewMetricFactory("testbufferedoutput_", nil, nil))
	t.Cleanup(out.Close)

	out.Start()
	<-entered // loop is now blocked in the event sink

	logs := newTestLogs(4)
	for _, log := range logs {
		out.EmitLog(log)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(out.metrics.overflowedLogsTotal))
	assert.Eventually(t, func() bool { return store.Count("main") == 2 }, 3*time.Second, 10*time.Millisecond)

	close(gate)
	assert.Equal(t, 2, out.Stats().BufferedLogs)
	assert.Eventually(t, func() bool { return store.Count("main") == 4 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(out.metrics.emittedLogsTotal))
}
