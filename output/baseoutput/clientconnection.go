package baseoutput

import (
	"context"
	"time"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
)

// EstablishConnectionFunc opens a ClientConnection to upstream
type EstablishConnectionFunc func(ctx context.Context) (ClientConnection, error)

// ClientConnection represents a connection / session / channel to upstream.
type ClientConnection interface {

	// Logger returns the logger bound to this connection
	Logger() logger.Logger

	// SendChunk encodes and sends out the given chunk to remote
	SendChunk(chunk base.LogChunk, deadline time.Time) error

	// ReadChunkAck reads the ID of the chunk just sent
	//
	// It may return empty string if the protocol has no chunk ID, or if acknowledgement is already done by SendChunk
	ReadChunkAck(deadline time.Time) (string, error)

	// Close closes the connection
	//
	// Close may be called more than once. The implementation must handle such situations silently.
	Close()
}
