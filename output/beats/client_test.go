package beats

import (
	"context"
	"net"
	"testing"
	"time"

	v2 "github.com/elastic/go-lumber/server/v2"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientWriteChunk(t *testing.T) {
	lsnr, lerr := net.Listen("tcp", "localhost:0")
	require.NoError(t, lerr)
	srv, serr := v2.NewWithListener(lsnr)
	require.NoError(t, serr)
	defer srv.Close()

	client := NewClient(logger.Root(), Config{
		Address: lsnr.Addr().String(),
		Timeout: 5 * time.Second,
	}, base.NewMetricFactory("testbeats_", nil, nil))
	defer client.Close()

	chunk := base.LogChunk{
		ID: "chunk-1",
		Logs: []base.LogRecord{
			base.NewLogRecord("app", time.Now(), "hello", map[string]string{"level": "info"}),
			base.NewLogRecord("", time.Now(), "world", nil),
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- client.WriteChunk(context.Background(), chunk)
	}()

	select {
	case batch := <-srv.ReceiveChan():
		require.Equal(t, 2, len(batch.Events))
		first := batch.Events[0].(map[string]interface{})
		assert.Equal(t, "hello", first["message"])
		assert.Equal(t, []interface{}{"app"}, first["tags"])
		assert.Equal(t, map[string]interface{}{"level": "info"}, first["fields"])
		assert.Equal(t, map[string]interface{}{"id": chunk.Logs[0].ID}, first["log"])
		batch.ACK()
	case <-time.After(5 * time.Second):
		assert.Fail(t, "timeout waiting for batch")
	}
	assert.NoError(t, <-done)
}

func TestConfigVerify(t *testing.T) {
	cfg := Config{Address: "localhost:5044"}
	assert.EqualError(t, cfg.VerifyConfig(), ".timeout is unspecified")

	cfg.Timeout = time.Second
	cfg.CompressionLevel = 10
	assert.ErrorContains(t, cfg.VerifyConfig(), ".compressionLevel must be within 0-9")

	cfg.CompressionLevel = 3
	assert.NoError(t, cfg.VerifyConfig())
}
