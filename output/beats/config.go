package beats

import (
	"fmt"
	"net"
	"time"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
)

// Config defines configuration for Beats (lumberjack v2) transport
type Config struct {
	bconfig.Header   `yaml:",inline"`
	Address          string        `yaml:"address"`
	Timeout          time.Duration `yaml:"timeout"`
	CompressionLevel int           `yaml:"compressionLevel"`
	MaxDuration      time.Duration `yaml:"maxDuration"`
}

// NewChunkWriter creates the lumberjack client
func (cfg *Config) NewChunkWriter(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.ChunkWriter, error) {
	return NewClient(parentLogger, *cfg, metricFactory), nil
}

// VerifyConfig verifies the configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Address) == 0 {
		return fmt.Errorf(".address is unspecified")
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return fmt.Errorf(".address is invalid: %w", err)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf(".timeout is unspecified")
	}
	if cfg.CompressionLevel < 0 || cfg.CompressionLevel > 9 {
		return fmt.Errorf(".compressionLevel must be within 0-9: %d", cfg.CompressionLevel)
	}
	if cfg.MaxDuration < 0 {
		return fmt.Errorf(".maxDuration is negative")
	}
	return nil
}
