package baseoutput

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
)

var errMockNetwork = errors.New("mock network failure")

type mockConnection struct {
	env    *mockEnv
	closed bool
}

type mockEnv struct {
	lock          sync.Mutex
	ConnSendChunk func(chunk base.LogChunk) error
	ConnReadAck   func(chunk base.LogChunk) (string, error)
	EstablishErr  error
	Opened        int
	Closed        int
	SentChunks    []base.LogChunk
}

func newMockEnv() *mockEnv {
	return &mockEnv{
		ConnSendChunk: func(chunk base.LogChunk) error { return nil },
		ConnReadAck:   func(chunk base.LogChunk) (string, error) { return chunk.ID, nil },
	}
}

func (env *mockEnv) Establish(ctx context.Context) (ClientConnection, error) {
	env.lock.Lock()
	defer env.lock.Unlock()
	if env.EstablishErr != nil {
		return nil, env.EstablishErr
	}
	env.Opened++
	return &mockConnection{env: env}, nil
}

func (conn *mockConnection) Logger() logger.Logger {
	return logger.WithField("test", "mockConnection")
}

func (conn *mockConnection) SendChunk(chunk base.LogChunk, deadline time.Time) error {
	conn.env.lock.Lock()
	defer conn.env.lock.Unlock()
	conn.env.SentChunks = append(conn.env.SentChunks, chunk)
	return conn.env.ConnSendChunk(chunk)
}

func (conn *mockConnection) ReadChunkAck(deadline time.Time) (string, error) {
	conn.env.lock.Lock()
	defer conn.env.lock.Unlock()
	return conn.env.ConnReadAck(conn.env.SentChunks[len(conn.env.SentChunks)-1])
}

func (conn *mockConnection) Close() {
	conn.env.lock.Lock()
	defer conn.env.lock.Unlock()
	if !conn.closed {
		conn.closed = true
		conn.env.Closed++
	}
}
