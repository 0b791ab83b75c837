package bufferedoutput

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/slog-shipper/base"
)

type outputMetrics struct {
	emittedLogsTotal    prometheus.Counter
	overflowedLogsTotal prometheus.Counter
	bufferedLogs        prometheus.Gauge
	inflightChunks      prometheus.Gauge
	flushesTotal        prometheus.Counter
	flushedLogsTotal    prometheus.Counter
	writeAttemptsTotal  prometheus.Counter
	writtenChunksTotal  prometheus.Counter
	writtenLogsTotal    prometheus.Counter
	retriesTotal        prometheus.Counter
	droppedChunksTotal  prometheus.Counter
	droppedLogsTotal    prometheus.Counter
	recoveredLogsTotal  prometheus.Counter
	storeErrorsAdd      prometheus.Counter
	storeErrorsRetrieve prometheus.Counter
	storeErrorsRemove   prometheus.Counter
}

func newOutputMetrics(metricFactory *base.MetricFactory, name string) outputMetrics {
	factory := metricFactory.NewSubFactory("output_", []string{"output"}, []string{name})
	storeErrors := factory.AddOrGetCounterVec("store_errors_total", "Numbers of failed log store operations", []string{"op"}, nil)
	metrics := outputMetrics{
		emittedLogsTotal:    factory.AddOrGetCounter("emitted_logs_total", "Numbers of logs received", nil, nil),
		overflowedLogsTotal: factory.AddOrGetCounter("overflowed_logs_total", "Numbers of logs persisted but not buffered because the action queue was full", nil, nil),
		bufferedLogs:        factory.AddOrGetGauge("buffered_logs", "Numbers of logs in buffer waiting for flush", nil, nil),
		inflightChunks:      factory.AddOrGetGauge("inflight_chunks", "Numbers of chunks being written or waiting for retry", nil, nil),
		flushesTotal:        factory.AddOrGetCounter("flushes_total", "Numbers of non-empty flushes", nil, nil),
		flushedLogsTotal:    factory.AddOrGetCounter("flushed_logs_total", "Numbers of logs moved from buffer into chunks", nil, nil),
		writeAttemptsTotal:  factory.AddOrGetCounter("write_attempts_total", "Numbers of chunk write attempts", nil, nil),
		writtenChunksTotal:  factory.AddOrGetCounter("written_chunks_total", "Numbers of chunks written successfully", nil, nil),
		writtenLogsTotal:    factory.AddOrGetCounter("written_logs_total", "Numbers of logs written successfully", nil, nil),
		retriesTotal:        factory.AddOrGetCounter("retries_total", "Numbers of scheduled chunk retries", nil, nil),
		droppedChunksTotal:  factory.AddOrGetCounter("dropped_chunks_total", "Numbers of chunks dropped after exhausting retries", nil, nil),
		droppedLogsTotal:    factory.AddOrGetCounter("dropped_logs_total", "Numbers of logs in dropped chunks", nil, nil),
		recoveredLogsTotal:  factory.AddOrGetCounter("recovered_logs_total", "Numbers of logs retrieved from store on start or resume", nil, nil),
		storeErrorsAdd:      storeErrors.WithLabelValues("add"),
		storeErrorsRetrieve: storeErrors.WithLabelValues("retrieve"),
		storeErrorsRemove:   storeErrors.WithLabelValues("remove"),
	}
	// reset gauges in case the factory is reused by a re-created output
	metrics.bufferedLogs.Set(0)
	metrics.inflightChunks.Set(0)
	return metrics
}
