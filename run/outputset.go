package run

import (
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/output/bufferedoutput"
)

// OutputSet is a group of buffered outputs which receive the same logs and follow the same lifecycle
//
// OutputSet owns the stores and transports created for its outputs and closes them on Shutdown
type OutputSet struct {
	logger  logger.Logger
	outputs []*bufferedoutput.Output
	writers []base.ChunkWriter
	stores  []base.LogStore
}

// Outputs returns the list of outputs in the order of configuration
func (set *OutputSet) Outputs() []*bufferedoutput.Output {
	return set.outputs
}

// EmitLog sends the log to all outputs
func (set *OutputSet) EmitLog(log base.LogRecord) {
	for _, out := range set.outputs {
		out.EmitLog(log)
	}
}

// Start starts all outputs
func (set *OutputSet) Start() {
	for _, out := range set.outputs {
		out.Start()
	}
}

// Suspend suspends all outputs, e.g. when the host application goes into background
func (set *OutputSet) Suspend() {
	for _, out := range set.outputs {
		out.Suspend()
	}
}

// Resume resumes all outputs after Suspend
func (set *OutputSet) Resume() {
	for _, out := range set.outputs {
		out.Resume()
	}
}

// Flush flushes all outputs once
func (set *OutputSet) Flush() {
	for _, out := range set.outputs {
		out.Flush()
	}
}

// Shutdown closes all outputs and then their transports and stores
func (set *OutputSet) Shutdown() {
	for _, out := range set.outputs {
		out.Close()
	}
	for _, writer := range set.writers {
		if err := writer.Close(); err != nil {
			set.logger.Warnf("error closing transport: %s", err.Error())
		}
	}
	for _, store := range set.stores {
		if err := store.Close(); err != nil {
			set.logger.Warnf("error closing store: %s", err.Error())
		}
	}
	set.logger.Info("shut down")
}
