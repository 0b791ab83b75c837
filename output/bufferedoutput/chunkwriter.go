package bufferedoutput

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
)

// chunkWriter runs the write and retry cycle of flushed chunks
//
// All methods must be called from the loop of the owning Output. Upstream writes run in background goroutines and
// report back through Output.post.
type chunkWriter struct {
	out          *Output
	inflight     map[string]*base.LogChunk // chunks being written or waiting for retry, by chunk ID
	inflightLogs map[string]int            // log ID to number of inflight chunks containing it
	retryTimers  map[*clock.Timer]struct{}
}

func newChunkWriter(out *Output) *chunkWriter {
	return &chunkWriter{
		out:          out,
		inflight:     make(map[string]*base.LogChunk),
		inflightLogs: make(map[string]int),
		retryTimers:  make(map[*clock.Timer]struct{}),
	}
}

// Dispatch takes the ownership of a new chunk and starts the first attempt
func (cw *chunkWriter) Dispatch(chunk *base.LogChunk) {
	if _, exists := cw.inflight[chunk.ID]; exists {
		cw.out.logger.Errorf("BUG: duplicate chunk %s", chunk)
		return
	}
	cw.inflight[chunk.ID] = chunk
	for _, log := range chunk.Logs {
		cw.inflightLogs[log.ID]++
	}
	cw.out.metrics.inflightChunks.Inc()
	cw.attempt(chunk)
}

// ContainsLog checks whether the given log is part of any inflight chunk
func (cw *chunkWriter) ContainsLog(logID string) bool {
	return cw.inflightLogs[logID] > 0
}

func (cw *chunkWriter) NumInflight() int {
	return len(cw.inflight)
}

func (cw *chunkWriter) NumPendingRetries() int {
	return len(cw.retryTimers)
}

// StopRetries cancels all scheduled retries, for teardown
func (cw *chunkWriter) StopRetries() int {
	num := len(cw.retryTimers)
	for timer := range cw.retryTimers {
		timer.Stop()
	}
	cw.retryTimers = make(map[*clock.Timer]struct{})
	return num
}

func (cw *chunkWriter) attempt(chunk *base.LogChunk) {
	out := cw.out
	out.metrics.writeAttemptsTotal.Inc()
	out.logger.Debugf("write chunk %s", chunk)

	snapshot := *chunk
	go func() {
		ctx, cancel := context.WithTimeout(out.ctx, defs.OutputWriteTimeout)
		err := out.writer.WriteChunk(ctx, snapshot)
		cancel()
		out.post(func() {
			cw.onAttempted(chunk, err)
		})
	}()
}

func (cw *chunkWriter) onAttempted(chunk *base.LogChunk, err error) {
	out := cw.out
	out.emit(base.OutputWriteAttempted)

	if err == nil {
		out.logger.Debugf("written chunk %s", chunk)
		cw.release(chunk)
		out.metrics.writtenChunksTotal.Inc()
		out.metrics.writtenLogsTotal.Add(float64(len(chunk.Logs)))
		out.removeFromStore(chunk.Logs)
		out.emit(base.OutputWriteSucceeded)
		return
	}

	chunk.RetryCount++
	if chunk.RetryCount > out.settings.MaxRetryCount {
		out.logger.Warnf("drop chunk %s after %d retries: %s", chunk, out.settings.MaxRetryCount, err.Error())
		cw.release(chunk)
		out.metrics.droppedChunksTotal.Inc()
		out.metrics.droppedLogsTotal.Add(float64(len(chunk.Logs)))
		return
	}

	delay := RetryDelay(chunk.RetryCount)
	out.logger.Debugf("retry chunk %s in %s: %s", chunk, delay, err.Error())
	out.metrics.retriesTotal.Inc()

	var timer *clock.Timer
	timer = out.clock.AfterFunc(delay, func() {
		out.post(func() {
			if _, pending := cw.retryTimers[timer]; !pending {
				return
			}
			delete(cw.retryTimers, timer)
			out.emit(base.OutputWriteRetried)
			cw.attempt(chunk)
		})
	})
	cw.retryTimers[timer] = struct{}{}
}

func (cw *chunkWriter) release(chunk *base.LogChunk) {
	if _, exists := cw.inflight[chunk.ID]; !exists {
		cw.out.logger.Errorf("BUG: release of unknown chunk %s", chunk)
		return
	}
	delete(cw.inflight, chunk.ID)
	for _, log := range chunk.Logs {
		if cw.inflightLogs[log.ID] <= 1 {
			delete(cw.inflightLogs, log.ID)
		} else {
			cw.inflightLogs[log.ID]--
		}
	}
	cw.out.metrics.inflightChunks.Dec()
}
