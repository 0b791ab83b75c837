// Package beats provides a chunk writer for Beats / lumberjack v2 protocol, as accepted by logstash
package beats

import (
	"context"
	"fmt"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/output/baseoutput"
)

type beatsConnection struct {
	logger logger.Logger
	client *lumberjack.SyncClient
}

// NewClient creates a ChunkWriter to send chunks to a Beats server
func NewClient(parentLogger logger.Logger, config Config, metricFactory *base.MetricFactory) *baseoutput.SyncClient {
	clientLogger := parentLogger.WithFields(logger.Fields{
		defs.LabelComponent: "BeatsClient",
		defs.LabelRemote:    config.Address,
	})

	return baseoutput.NewSyncClient(
		clientLogger,
		metricFactory,
		"beats",
		func(ctx context.Context) (baseoutput.ClientConnection, error) {
			return openBeatsConnection(clientLogger, config)
		},
		config.MaxDuration,
	)
}

func openBeatsConnection(connLogger logger.Logger, config Config) (*beatsConnection, error) {
	connLogger.Infof("connecting to %s", config.Address)
	client, err := lumberjack.SyncDial(config.Address,
		lumberjack.CompressionLevel(config.CompressionLevel),
		lumberjack.Timeout(config.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &beatsConnection{
		logger: connLogger,
		client: client,
	}, nil
}

func (bconn *beatsConnection) Logger() logger.Logger {
	return bconn.logger
}

// SendChunk sends all logs as one window and waits for the ACK of the whole window
//
// The deadline is not used since lumberjack applies its own timeout to each I/O operation.
func (bconn *beatsConnection) SendChunk(chunk base.LogChunk, _ time.Time) error {
	events := make([]interface{}, len(chunk.Logs))
	for i, log := range chunk.Logs {
		events[i] = newEvent(log)
	}
	n, err := bconn.client.Send(events)
	if err != nil {
		return fmt.Errorf("failed to send: %s, %w", chunk.String(), err)
	}
	if n != len(events) {
		return fmt.Errorf("partially acknowledged: %s, %d", chunk.String(), n)
	}
	return nil
}

// ReadChunkAck returns nothing since the ACK has been received by SendChunk
func (bconn *beatsConnection) ReadChunkAck(_ time.Time) (string, error) {
	return "", nil
}

func (bconn *beatsConnection) Close() {
	if err := bconn.client.Close(); err != nil {
		bconn.logger.Warn("error closing connection: ", err)
	}
}

func newEvent(log base.LogRecord) map[string]interface{} {
	fields := make(map[string]interface{}, len(log.Fields))
	for k, v := range log.Fields {
		fields[k] = v
	}
	event := map[string]interface{}{
		"@timestamp": log.Time,
		"message":    log.Message,
		"log": map[string]interface{}{
			"id": log.ID,
		},
		"fields": fields,
	}
	if len(log.Tag) > 0 {
		event["tags"] = []string{log.Tag}
	}
	return event
}
