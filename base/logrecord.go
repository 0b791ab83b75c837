package base

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogRecord is a single log entry collected by an input or the host application
//
// The content is opaque to outputs. Records are identified by ID and their order matters.
type LogRecord struct {
	ID      string            `msgpack:"id" json:"id"`                             // Unique ID, used to remove the record from LogStore after delivery
	Tag     string            `msgpack:"tag" json:"tag"`                           // Routing tag, passed as-is to upstream
	Time    time.Time         `msgpack:"time" json:"time"`                         // Creation time
	Message string            `msgpack:"message" json:"message"`                   // Main message
	Fields  map[string]string `msgpack:"fields,omitempty" json:"fields,omitempty"` // Extra labels
}

// NewLogRecord creates a LogRecord with a new random ID
func NewLogRecord(tag string, tm time.Time, message string, fields map[string]string) LogRecord {
	return LogRecord{
		ID:      uuid.NewString(),
		Tag:     tag,
		Time:    tm,
		Message: message,
		Fields:  fields,
	}
}

func (record LogRecord) String() string {
	return fmt.Sprintf("id=%s tag=%s time=%s len=%d", record.ID, record.Tag, record.Time.Format(time.RFC3339Nano), len(record.Message))
}

// LogRecordIDs collects the IDs of given records in the same order
func LogRecordIDs(logs []LogRecord) []string {
	ids := make([]string, len(logs))
	for i, log := range logs {
		ids[i] = log.ID
	}
	return ids
}
