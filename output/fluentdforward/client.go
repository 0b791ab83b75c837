package fluentdforward

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/output/baseoutput"
	"github.com/relex/slog-shipper/util"
	"github.com/vmihailenco/msgpack/v4"
)

type forwardConnection struct {
	logger  logger.Logger
	socket  net.Conn
	encoder *messageEncoder
	decoder *msgpack.Decoder // to read msgpack responses from Fluentd
}

// NewClient creates a ChunkWriter to send chunks to upstream fluentd
func NewClient(parentLogger logger.Logger, config Config, metricFactory *base.MetricFactory) *baseoutput.SyncClient {
	clientLogger := parentLogger.WithField(defs.LabelComponent, "FluentdForwardClient")

	return baseoutput.NewSyncClient(
		clientLogger,
		metricFactory,
		"fluentdForward",
		func(ctx context.Context) (baseoutput.ClientConnection, error) {
			return openForwardConnection(ctx, clientLogger, config)
		},
		config.Upstream.MaxDuration,
	)
}

func openForwardConnection(ctx context.Context, parentLogger logger.Logger, config Config) (*forwardConnection, error) {
	connLogger := parentLogger.WithField(defs.LabelRemote, config.Upstream.Address)

	sock, connErr := connect(ctx, connLogger, config.Upstream.TLS, config.Upstream.Address)
	if connErr != nil {
		return nil, fmt.Errorf("failed to connect: %w", connErr)
	}
	connLogger.Info("connected to ", sock.RemoteAddr())

	if len(config.Upstream.Secret) > 0 {
		success, reason, herr := forwardprotocol.DoClientHandshake(sock, config.Upstream.Secret, defs.ForwarderHandshakeTimeout)
		if herr != nil {
			closeSocket(connLogger, sock)
			return nil, fmt.Errorf("failed to handshake due to error: %w", herr)
		}
		if !success {
			closeSocket(connLogger, sock)
			return nil, fmt.Errorf("login rejected: %s", reason)
		}
	}

	return &forwardConnection{
		logger:  connLogger,
		socket:  sock,
		encoder: newMessageEncoder(config.Tag, config.MessageMode),
		decoder: msgpack.NewDecoder(sock),
	}, nil
}

func connect(ctx context.Context, connLogger logger.Logger, useTLS bool, address string) (net.Conn, error) {
	dialer := &net.Dialer{}
	dialer.Timeout = defs.ForwarderConnectionTimeout

	if useTLS {
		connLogger.Infof("connecting to %s in TLS mode", address)
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // we don't verify certs anyway
		}
		return tlsDialer.DialContext(ctx, "tcp", address)
	}

	connLogger.Infof("connecting to %s in TCP mode", address)
	return dialer.DialContext(ctx, "tcp", address)
}

func (fconn *forwardConnection) Logger() logger.Logger {
	return fconn.logger
}

func (fconn *forwardConnection) SendChunk(chunk base.LogChunk, deadline time.Time) error {
	message, encErr := fconn.encoder.Encode(chunk)
	if encErr != nil {
		return fmt.Errorf("failed to encode: %s, %w", chunk.String(), encErr)
	}

	timeout := defs.ForwarderBatchSendTimeoutBase + time.Duration(len(message)/defs.ForwarderBatchSendMinimumSpeed)*time.Second
	if sizedDeadline := time.Now().Add(timeout); sizedDeadline.Before(deadline) {
		deadline = sizedDeadline
	}
	if err := fconn.socket.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set send timeout: %s, %w", chunk.String(), err)
	}

	if err := writeAll(fconn.socket, message); err != nil {
		return fmt.Errorf("failed to send: %s, %w", chunk.String(), err)
	}

	return nil
}

func (fconn *forwardConnection) ReadChunkAck(deadline time.Time) (string, error) {
	if err := fconn.socket.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set read timeout: %w", err)
	}

	ack := forwardprotocol.Ack{}
	if err := fconn.decoder.Decode(&ack); err != nil {
		return "", fmt.Errorf("failed to read ACK: %w", err)
	}

	// empty ACK is not acceptable because chunk ID is always sent
	if len(ack.Ack) == 0 {
		return "", fmt.Errorf("empty ACK")
	}
	return ack.Ack, nil
}

func (fconn *forwardConnection) Close() {
	closeSocket(fconn.logger, fconn.socket)
}

func closeSocket(connLogger logger.Logger, sock net.Conn) {
	if err := sock.Close(); err != nil && !util.IsNetworkClosed(err) {
		connLogger.Warn("error closing connection: ", err)
	}
}

func writeAll(conn io.Writer, data []byte) error {
	for {
		n, err := conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
		if len(data) == 0 {
			return nil
		}
	}
}
