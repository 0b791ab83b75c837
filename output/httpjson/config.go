package httpjson

import (
	"fmt"
	"net/url"
	"time"

	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
)

// Config defines configuration for the HTTP JSON transport
type Config struct {
	bconfig.Header `yaml:",inline"`
	Upstream       UpstreamConfig `yaml:"upstream"`
	Compress       bool           `yaml:"compress"`
}

// UpstreamConfig defines the upstream section in config file
type UpstreamConfig struct {
	Address      string        `yaml:"address"`      // Full URL to POST logs to
	HTTPTimeout  time.Duration `yaml:"httpTimeout"`  // Timeout of each request
	APIKeyHeader string        `yaml:"apiKeyHeader"` // Optional header to carry API key, e.g. "DD-API-KEY"
	APIKeyEnv    string        `yaml:"apiKeyEnv"`    // Environment variable to read API key from
}

// NewChunkWriter creates the HTTP client
func (cfg *Config) NewChunkWriter(parentLogger logger.Logger, metricFactory *base.MetricFactory) (base.ChunkWriter, error) {
	return NewClient(parentLogger, *cfg, metricFactory)
}

// VerifyConfig verifies the configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Upstream.Address) == 0 {
		return fmt.Errorf(".upstream.address is unspecified")
	}
	u, err := url.Parse(cfg.Upstream.Address)
	if err != nil {
		return fmt.Errorf(".upstream.address is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf(".upstream.address: '%s' is not a http(s) URL", cfg.Upstream.Address)
	}

	if cfg.Upstream.HTTPTimeout <= 0 {
		return fmt.Errorf(".upstream.httpTimeout is unspecified")
	}

	if len(cfg.Upstream.APIKeyEnv) > 0 && len(cfg.Upstream.APIKeyHeader) == 0 {
		return fmt.Errorf(".upstream.apiKeyHeader is unspecified when apiKeyEnv is set")
	}
	if len(cfg.Upstream.APIKeyHeader) > 0 && len(cfg.Upstream.APIKeyEnv) == 0 {
		return fmt.Errorf(".upstream.apiKeyEnv is unspecified when apiKeyHeader is set")
	}
	return nil
}
