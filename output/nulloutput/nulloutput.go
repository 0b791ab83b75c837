// Package nulloutput provides a chunk writer which accepts everything without sending
package nulloutput

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/defs"
)

// Config defines the configuration for null transport, which has no options
type Config struct {
	bconfig.Header `yaml:",inline"`
}

// NewChunkWriter creates a Writer
func (cfg *Config) NewChunkWriter(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.ChunkWriter, error) {
	return NewWriter(parentLogger, metricFactory), nil
}

// VerifyConfig checks configuration
func (cfg *Config) VerifyConfig() error {
	return nil
}

// Writer discards all chunks and reports success
type Writer struct {
	logger        logger.Logger
	discardedLogs prometheus.Counter
}

// NewWriter creates a Writer
func NewWriter(parentLogger logger.Logger, metricFactory *base.MetricFactory) *Writer {
	return &Writer{
		logger:        parentLogger.WithField(defs.LabelComponent, "NullWriter"),
		discardedLogs: metricFactory.AddOrGetCounter("transport_discarded_logs_total", "Numbers of logs accepted and discarded by null transport", nil, nil),
	}
}

// WriteChunk discards the chunk
func (writer *Writer) WriteChunk(_ context.Context, chunk base.LogChunk) error {
	writer.logger.Debugf("discard chunk %s", chunk)
	writer.discardedLogs.Add(float64(len(chunk.Logs)))
	return nil
}

// Close does nothing
func (writer *Writer) Close() error {
	return nil
}
