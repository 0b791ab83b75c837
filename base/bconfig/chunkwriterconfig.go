package bconfig

import (
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
)

// ChunkWriterConfig provides an interface for the configuration of transports to upstream
//
// All the implementations should support YAML unmarshalling
type ChunkWriterConfig interface {
	BaseConfig

	NewChunkWriter(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.ChunkWriter, error)

	VerifyConfig() error
}

// ChunkWriterConfigHolder holds ChunkWriterConfig
type ChunkWriterConfigHolder = ConfigHolder[ChunkWriterConfig]

// ChunkWriterConfigCreatorTable defines the table of constructors for ChunkWriterConfig implementations
type ChunkWriterConfigCreatorTable = ConfigCreatorTable[ChunkWriterConfig]
