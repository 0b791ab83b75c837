package base

// LogInput represents a source of logs, e.g. files tailed on local disk
//
// An input emits logs to the LogEmitter given at creation until stopped
type LogInput interface {
	PipelineWorker
	Stop()
}
