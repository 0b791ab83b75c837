package fluentdforward

import (
	"fmt"
	"net"
	"time"

	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/defs"
)

// Config defines configuration for fluentd-forward transport
type Config struct {
	bconfig.Header `yaml:",inline"`
	Tag            string                      `yaml:"tag"`
	MessageMode    forwardprotocol.MessageMode `yaml:"messageMode"`
	Upstream       UpstreamConfig              `yaml:"upstream"`
}

// UpstreamConfig defines the upstream section in config file
type UpstreamConfig struct {
	Address     string        `yaml:"address"`
	TLS         bool          `yaml:"tls"`
	Secret      string        `yaml:"secret"`
	MaxDuration time.Duration `yaml:"maxDuration"`
}

// NewChunkWriter creates the forwarding client
func (cfg *Config) NewChunkWriter(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.ChunkWriter, error) {
	return NewClient(parentLogger, *cfg, metricFactory), nil
}

// VerifyConfig verifies the configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Tag) == 0 {
		return fmt.Errorf(".tag is unspecified")
	}

	switch cfg.MessageMode {
	case "":
		return fmt.Errorf(".messageMode is unspecified")
	case forwardprotocol.ModeForward:
	case forwardprotocol.ModePackedForward:
	case forwardprotocol.ModeCompressedPackedForward:
	default:
		return fmt.Errorf(".messageMode: '%s' is not a valid mode", cfg.MessageMode)
	}

	if len(cfg.Upstream.Address) == 0 {
		return fmt.Errorf(".upstream.address is unspecified")
	}
	if _, _, err := net.SplitHostPort(cfg.Upstream.Address); err != nil {
		return fmt.Errorf(".upstream.address is invalid: %w", err)
	}

	if cfg.Upstream.TLS && len(cfg.Upstream.Secret) == 0 {
		return fmt.Errorf(".upstream.secret is unspecified when tls=true")
	}

	if cfg.Upstream.MaxDuration < 0 {
		return fmt.Errorf(".upstream.maxDuration is negative")
	}
	if cfg.Upstream.MaxDuration > 0 && cfg.Upstream.MaxDuration < defs.ForwarderConnectionTimeout {
		return fmt.Errorf(".upstream.maxDuration is shorter than connection timeout %s", defs.ForwarderConnectionTimeout)
	}
	return nil
}
