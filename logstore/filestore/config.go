package filestore

import (
	"fmt"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/defs"
)

// Config defines the configuration for file-based Store
type Config struct {
	bconfig.Header `yaml:",inline"`
	RootPath       string            `yaml:"rootPath"`     // root path on top of queue subdirs, may contain environment variables
	MaxStoreSize   datasize.ByteSize `yaml:"maxStoreSize"` // max total size of record files for each output
}

// ListOutputIDs lists IDs of outputs with persisted logs under the root path
func (cfg *Config) ListOutputIDs(parentLogger logger.Logger) []string {
	clogger := parentLogger.WithField(defs.LabelComponent, "FileStoreConfig")
	return listQueueOutputIDs(clogger, os.ExpandEnv(cfg.RootPath))
}

// NewStore creates a Store
func (cfg *Config) NewStore(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.LogStore, error) {
	rootPath := os.ExpandEnv(cfg.RootPath)
	if strings.Contains(rootPath, "$") {
		parentLogger.Warnf("possibly misconfigured .rootPath: '%s'", rootPath)
	}
	return NewStore(parentLogger, rootPath, int64(cfg.MaxStoreSize.Bytes()), metricFactory)
}

// VerifyConfig checks configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.RootPath) == 0 {
		return fmt.Errorf(".rootPath is unspecified")
	}
	if cfg.MaxStoreSize.Bytes() == 0 {
		return fmt.Errorf(".maxStoreSize is unspecified")
	}
	return nil
}
