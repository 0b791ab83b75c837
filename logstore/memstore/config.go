package memstore

import (
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
)

// Config defines the configuration for in-memory Store, which has no options
type Config struct {
	bconfig.Header `yaml:",inline"`
}

// NewStore creates a Store
func (cfg *Config) NewStore(parentLogger logger.Logger, _ *base.MetricFactory) (base.LogStore, error) {
	return NewStore(parentLogger), nil
}

// VerifyConfig checks configuration
func (cfg *Config) VerifyConfig() error {
	return nil
}
