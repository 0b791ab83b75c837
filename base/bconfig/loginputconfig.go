package bconfig

import (
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
)

// LogInputConfig provides an interface for the configuration of LogInput(s)
//
// All the implementations should support YAML unmarshalling
type LogInputConfig interface {
	BaseConfig

	// NewInput creates an input to emit logs into the given emitter, which is usually a set of outputs
	NewInput(parentLogger logger.Logger, emitter base.LogEmitter, metricFactory *base.MetricFactory) (base.LogInput, error)

	VerifyConfig() error
}

// LogInputConfigHolder holds LogInputConfig
type LogInputConfigHolder = ConfigHolder[LogInputConfig]

// LogInputConfigCreatorTable defines the table of constructors for LogInputConfig implementations
type LogInputConfigCreatorTable = ConfigCreatorTable[LogInputConfig]
