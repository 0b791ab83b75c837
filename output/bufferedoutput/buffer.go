package bufferedoutput

import (
	"github.com/relex/slog-shipper/base"
	"golang.org/x/exp/slices"
)

// logBuffer is the FIFO queue of logs waiting to be flushed, owned by the loop of an Output
type logBuffer struct {
	logs []base.LogRecord
	ids  map[string]struct{}
}

func newLogBuffer() *logBuffer {
	return &logBuffer{
		logs: nil,
		ids:  make(map[string]struct{}),
	}
}

func (buf *logBuffer) Len() int {
	return len(buf.logs)
}

func (buf *logBuffer) Contains(id string) bool {
	_, ok := buf.ids[id]
	return ok
}

func (buf *logBuffer) Append(log base.LogRecord) {
	buf.logs = append(buf.logs, log)
	buf.ids[log.ID] = struct{}{}
}

// TakeFront removes and returns up to n logs from the front
func (buf *logBuffer) TakeFront(n int) []base.LogRecord {
	if n > len(buf.logs) {
		n = len(buf.logs)
	}
	taken := slices.Clone(buf.logs[:n])
	for _, log := range taken {
		delete(buf.ids, log.ID)
	}
	buf.logs = slices.Delete(buf.logs, 0, n)
	return taken
}

func (buf *logBuffer) Clear() {
	buf.logs = nil
	buf.ids = make(map[string]struct{})
}
