package defs

import (
	"time"
)

var (
	// TimeUnit is the unit of flush intervals and retry delays
	TimeUnit = 1 * time.Second

	// OutputTickInterval defines how often an output checks whether its flush interval has elapsed
	OutputTickInterval = 1 * TimeUnit

	// OutputRetryBaseDelay is the delay before the first retry of a chunk, doubled for each subsequent retry
	OutputRetryBaseDelay = 2 * TimeUnit

	// OutputActionQueueSize defines the size of the channel feeding actions into the serial loop of an output
	//
	// EmitLog never waits for the queue; other output methods wait while it's full
	OutputActionQueueSize = 1000

	// OutputWriteTimeout limits a single attempt to write a chunk to upstream
	OutputWriteTimeout = 60 * time.Second

	// OutputStoreTimeout limits a single call to the log store of an output
	OutputStoreTimeout = 30 * time.Second

	// OutputCloseTimeout is how long to wait for the serial loop of an output to stop
	OutputCloseTimeout = 10 * time.Second
)

var (
	// ForwarderConnectionTimeout is for establishing a TCP connection to upstream
	ForwarderConnectionTimeout = 60 * time.Second

	// ForwarderHandshakeTimeout is for TLS and Fluentd handshakes with upstream
	ForwarderHandshakeTimeout = ForwarderConnectionTimeout + ForwarderConnectionTimeout/2

	// ForwarderBatchSendMinimumSpeed is the minimum speed in bytes/sec to calculate timeout
	//
	// Actual timeout for sending is [base] + [packet length] / [minimal speed per]
	ForwarderBatchSendMinimumSpeed = 10 * 1024

	// ForwarderBatchSendTimeoutBase is how long to wait at least for sending one chunk.
	ForwarderBatchSendTimeoutBase = ForwarderConnectionTimeout + ForwarderConnectionTimeout/2

	// ForwarderBatchAckTimeout is how long to wait for receiving one chunk ACK.
	ForwarderBatchAckTimeout = ForwarderConnectionTimeout + 60*time.Second
)

var (
	// InputScanInterval is how often file inputs look for new files matching their patterns
	InputScanInterval = 10 * time.Second

	// InputLogMaxMessageBytes defines the maximum length of a log message read by inputs
	//
	// Longer messages are truncated
	InputLogMaxMessageBytes = 1 * 1024 * 1024
)

// For testing and experiments
const (
	TestReadTimeout = 5 * time.Second
)

// EnableTestMode turns on test mode with very short timeout and fast ticking
func EnableTestMode() {
	TimeUnit = 100 * time.Millisecond
	OutputTickInterval = 1 * TimeUnit
	OutputRetryBaseDelay = 2 * TimeUnit
	OutputWriteTimeout = 3 * time.Second
	OutputStoreTimeout = 3 * time.Second
	OutputCloseTimeout = 3 * time.Second
	ForwarderConnectionTimeout = 1 * time.Second
	ForwarderHandshakeTimeout = 2 * time.Second
	ForwarderBatchSendTimeoutBase = 3 * time.Second
	ForwarderBatchAckTimeout = 3 * time.Second
	InputScanInterval = 200 * time.Millisecond
}
