package base

import (
	"fmt"

	"github.com/google/uuid"
)

// LogChunk represents a batch of log records flushed from an output buffer, to be written to upstream as one unit
//
// Logs are fixed at creation. RetryCount only grows, and the chunk is owned by the writer of its output until
// it's written successfully or dropped.
type LogChunk struct {
	ID         string      // Unique ID of this chunk, may be used for upstream acknowledgement
	Logs       []LogRecord // Records in original order
	RetryCount int         // Number of failed attempts so far
}

// NewLogChunk creates a new chunk of the given records with zero retries
func NewLogChunk(logs []LogRecord) *LogChunk {
	return &LogChunk{
		ID:         uuid.NewString(),
		Logs:       logs,
		RetryCount: 0,
	}
}

func (chunk LogChunk) String() string {
	if chunk.RetryCount > 0 {
		return fmt.Sprintf("id=%s len=%d retry=%d", chunk.ID, len(chunk.Logs), chunk.RetryCount)
	}
	return fmt.Sprintf("id=%s len=%d", chunk.ID, len(chunk.Logs))
}
