package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(logger.Root())
	logs := []base.LogRecord{
		base.NewLogRecord("a", time.Unix(1, 0), "first", nil),
		base.NewLogRecord("a", time.Unix(2, 0), "second", nil),
		base.NewLogRecord("a", time.Unix(3, 0), "third", nil),
	}

	empty, err := store.Retrieve(ctx, "out1")
	assert.NoError(t, err)
	assert.Empty(t, empty)

	for _, log := range logs {
		assert.NoError(t, store.Add(ctx, "out1", log))
	}
	assert.NoError(t, store.Add(ctx, "out2", logs[0]))

	retrieved, err := store.Retrieve(ctx, "out1")
	assert.NoError(t, err)
	assert.Equal(t, logs, retrieved)

	assert.NoError(t, store.Remove(ctx, "out1", logs[:2]))
	retrieved, _ = store.Retrieve(ctx, "out1")
	assert.Equal(t, logs[2:], retrieved)
	assert.Equal(t, 1, store.Count("out2"))
	assert.NoError(t, store.Remove(ctx, "unknown", logs))

	assert.NoError(t, store.Close())
	assert.Equal(t, 0, store.Count("out1"))
}
