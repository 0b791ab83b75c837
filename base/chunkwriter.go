package base

import (
	"context"
)

// ChunkWriter delivers chunks to upstream
//
// WriteChunk may be called concurrently for different chunks. A nil error means the chunk has been accepted and
// may be removed from LogStore; any error makes the caller retry later.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, chunk LogChunk) error
	Close() error
}
