package sqlitestore

import (
	"fmt"
	"os"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
)

// Config defines the configuration for SQLite Store
type Config struct {
	bconfig.Header `yaml:",inline"`
	Path           string `yaml:"path"` // database file path, may contain environment variables; ":memory:" for testing
}

// NewStore creates a Store
func (cfg *Config) NewStore(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.LogStore, error) {
	return NewStore(parentLogger, os.ExpandEnv(cfg.Path), metricFactory)
}

// VerifyConfig checks configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Path) == 0 {
		return fmt.Errorf(".path is unspecified")
	}
	return nil
}
