package bconfig

import (
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
)

// LogStoreConfig provides an interface for the configuration of LogStore(s)
//
// All the implementations should support YAML unmarshalling
type LogStoreConfig interface {
	BaseConfig

	// NewStore creates a store, which may reopen records persisted by a previous process
	NewStore(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.LogStore, error)

	VerifyConfig() error
}

// LogStoreConfigHolder holds LogStoreConfig
type LogStoreConfigHolder = ConfigHolder[LogStoreConfig]

// LogStoreConfigCreatorTable defines the table of constructors for LogStoreConfig implementations
type LogStoreConfigCreatorTable = ConfigCreatorTable[LogStoreConfig]
