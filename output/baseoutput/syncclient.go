package baseoutput

import (
	"context"
	"fmt"
	"time"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
)

// SyncClient is a ChunkWriter which sends one chunk at a time over a reusable connection and waits for its ACK
//
// The connection is established on demand, closed on any error and recycled after maxDuration
type SyncClient struct {
	logger       logger.Logger
	establish    EstablishConnectionFunc
	maxDuration  time.Duration
	metrics      clientMetrics
	slot         chan struct{} // held by the current writer
	conn         ClientConnection
	connOpenedAt time.Time
}

// NewSyncClient creates a SyncClient without connecting
//
// maxDuration is the max lifetime of a connection, 0 for unlimited
func NewSyncClient(parentLogger logger.Logger, metricFactory *base.MetricFactory, transportType string,
	establish EstablishConnectionFunc, maxDuration time.Duration) *SyncClient {

	return &SyncClient{
		logger:       parentLogger,
		establish:    establish,
		maxDuration:  maxDuration,
		metrics:      newClientMetrics(metricFactory, transportType),
		slot:         make(chan struct{}, 1),
		conn:         nil,
		connOpenedAt: time.Time{},
	}
}

// WriteChunk sends the chunk and waits for ACK
func (client *SyncClient) WriteChunk(ctx context.Context, chunk base.LogChunk) error {
	select {
	case client.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for connection: %w", ctx.Err())
	}
	defer func() { <-client.slot }()

	conn, cerr := client.acquireConnection(ctx)
	if cerr != nil {
		client.metrics.OnError(cerr)
		return cerr
	}

	client.metrics.OnForwarding(chunk)
	if err := conn.SendChunk(chunk, client.deadline(ctx, defs.OutputWriteTimeout)); err != nil {
		client.abort(err)
		return err
	}
	client.metrics.OnForwarded(chunk)

	ackID, aerr := conn.ReadChunkAck(client.deadline(ctx, defs.ForwarderBatchAckTimeout))
	if aerr != nil {
		client.abort(aerr)
		return aerr
	}
	if ackID != "" && ackID != chunk.ID {
		err := fmt.Errorf("mismatched ACK for chunk %s: %s", chunk.ID, ackID)
		client.abort(err)
		return err
	}
	client.metrics.OnAcknowledged(chunk)
	conn.Logger().Debugf("acknowledged chunk %s", chunk)

	if client.maxDuration > 0 && time.Since(client.connOpenedAt) >= client.maxDuration {
		conn.Logger().Infof("recycle connection after %s", client.maxDuration)
		client.closeConnection()
	}
	return nil
}

// Close closes the current connection if any
func (client *SyncClient) Close() error {
	client.slot <- struct{}{}
	defer func() { <-client.slot }()
	client.closeConnection()
	return nil
}

func (client *SyncClient) acquireConnection(ctx context.Context) (ClientConnection, error) {
	if client.conn != nil {
		return client.conn, nil
	}
	client.metrics.OnOpening()
	connectCtx, cancel := context.WithTimeout(ctx, defs.ForwarderConnectionTimeout+defs.ForwarderHandshakeTimeout)
	defer cancel()
	conn, err := client.establish(connectCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	client.conn = conn
	client.connOpenedAt = time.Now()
	return conn, nil
}

func (client *SyncClient) abort(err error) {
	client.metrics.OnError(err)
	if client.conn != nil {
		client.conn.Logger().Warnf("abort connection: %s", err.Error())
	}
	client.closeConnection()
}

func (client *SyncClient) closeConnection() {
	if client.conn == nil {
		return
	}
	client.conn.Close()
	client.conn = nil
}

func (client *SyncClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
