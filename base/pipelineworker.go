package base

import (
	"github.com/relex/gotils/channels"
)

// PipelineWorker represents a background worker, e.g. an input or an output loop
type PipelineWorker interface {
	Start()
	Stopped() channels.Awaitable
}
