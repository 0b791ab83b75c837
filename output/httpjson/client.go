// Package httpjson provides a chunk writer which POSTs each chunk as a JSON array of events
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/output/baseoutput"
)

// event is the JSON form of a log record
type event map[string]string

// Keys of event fields generated from record properties, overriding custom fields of the same names
const (
	eventKeyID        = "id"
	eventKeyTag       = "tag"
	eventKeyTimestamp = "timestamp"
	eventKeyMessage   = "message"
)

type httpConnection struct {
	logger   logger.Logger
	client   *http.Client
	address  string
	headers  http.Header
	compress bool
	body     bytes.Buffer
}

// NewClient creates a ChunkWriter to POST chunks to upstream
//
// HTTP connections are pooled by net/http, so the connection here is only a request template and never recycled.
func NewClient(parentLogger logger.Logger, config Config, metricFactory *base.MetricFactory) (*baseoutput.SyncClient, error) {
	clientLogger := parentLogger.WithFields(logger.Fields{
		defs.LabelComponent: "HTTPJSONClient",
		defs.LabelRemote:    config.Upstream.Address,
	})

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if config.Compress {
		headers.Set("Content-Encoding", "gzip")
	}
	if len(config.Upstream.APIKeyHeader) > 0 {
		key := os.Getenv(config.Upstream.APIKeyEnv)
		if len(key) == 0 {
			return nil, fmt.Errorf("API key is not found in environment variable '%s'", config.Upstream.APIKeyEnv)
		}
		headers.Set(config.Upstream.APIKeyHeader, key)
	}

	conn := &httpConnection{
		logger:   clientLogger,
		client:   &http.Client{Timeout: config.Upstream.HTTPTimeout},
		address:  config.Upstream.Address,
		headers:  headers,
		compress: config.Compress,
	}

	return baseoutput.NewSyncClient(
		clientLogger,
		metricFactory,
		"httpJSON",
		func(ctx context.Context) (baseoutput.ClientConnection, error) {
			return conn, nil
		},
		0,
	), nil
}

func (conn *httpConnection) Logger() logger.Logger {
	return conn.logger
}

func (conn *httpConnection) SendChunk(chunk base.LogChunk, deadline time.Time) error {
	if err := conn.encodeBody(chunk); err != nil {
		return fmt.Errorf("failed to encode: %s, %w", chunk.String(), err)
	}

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	rq, err := http.NewRequestWithContext(ctx, http.MethodPost, conn.address, bytes.NewReader(conn.body.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	rq.Header = conn.headers.Clone()

	resp, err := conn.client.Do(rq)
	if err != nil {
		return fmt.Errorf("send chunk error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("couldn't read response body: %w", err)
		}
		return fmt.Errorf("got a status %d with body %s", resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ReadChunkAck returns nothing since the response status of SendChunk is the acknowledgement
func (conn *httpConnection) ReadChunkAck(_ time.Time) (string, error) {
	return "", nil
}

func (conn *httpConnection) Close() {
	conn.client.CloseIdleConnections()
}

func (conn *httpConnection) encodeBody(chunk base.LogChunk) error {
	events := make([]event, len(chunk.Logs))
	for i, log := range chunk.Logs {
		evt := make(event, len(log.Fields)+4)
		for k, v := range log.Fields {
			evt[k] = v
		}
		evt[eventKeyID] = log.ID
		if len(log.Tag) > 0 {
			evt[eventKeyTag] = log.Tag
		}
		evt[eventKeyTimestamp] = log.Time.Format(time.RFC3339Nano)
		evt[eventKeyMessage] = log.Message
		events[i] = evt
	}

	conn.body.Reset()
	var writer io.Writer = &conn.body
	var gzipWriter *gzip.Writer
	if conn.compress {
		gzipWriter, _ = gzip.NewWriterLevel(&conn.body, gzip.BestSpeed) //nolint:errcheck // level is valid
		writer = gzipWriter
	}
	if err := json.NewEncoder(writer).Encode(events); err != nil {
		return err
	}
	if gzipWriter != nil {
		return gzipWriter.Close()
	}
	return nil
}
