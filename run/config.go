package run

import (
	"fmt"

	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/input"
	"github.com/relex/slog-shipper/logstore"
	"github.com/relex/slog-shipper/output"
	"github.com/relex/slog-shipper/util"
	"gopkg.in/yaml.v3"
)

// FilterTypeBuffered is the only supported type of outputs, also assumed when .filterType is omitted
const FilterTypeBuffered = "buffered"

// Config defines the root of slog-shipper config file
type Config struct {
	Anchors AnchorsConfig                  `yaml:"anchors"`
	Outputs []OutputConfig                 `yaml:"outputs"`
	Inputs  []bconfig.LogInputConfigHolder `yaml:"inputs"`
}

// AnchorsConfig defines the anchors section in config file
// The section is meant to provide anchors for other sections and doesn't need to be unmarshalled itself
type AnchorsConfig struct {
}

// OutputConfig defines one buffered output
//
// .tagPattern is kept as part of the filter setting for host applications; every output receives all logs here.
// Missing .store means in-memory store and missing .transport means logs are discarded after flushing.
type OutputConfig struct {
	Name                  string `yaml:"name"`
	bconfig.FilterSetting `yaml:",inline"`
	Store                 bconfig.LogStoreConfigHolder    `yaml:"store"`
	Transport             bconfig.ChunkWriterConfigHolder `yaml:"transport"`
}

func init() {
	input.Register()
	logstore.Register()
	output.Register()
}

// ParseConfigFile loads config from the path and verifies all configurations
func ParseConfigFile(filepath string) (Config, error) {
	config := Config{}
	if err := util.UnmarshalYamlFile(filepath, &config); err != nil {
		return config, err
	}
	if err := config.VerifyConfig(); err != nil {
		return config, err
	}
	return config, nil
}

// VerifyConfig verifies the whole config
func (config *Config) VerifyConfig() error {
	if len(config.Outputs) == 0 {
		return fmt.Errorf("outputs is empty")
	}
	names := make(map[string]bool, len(config.Outputs))
	for i, outputConfig := range config.Outputs {
		if err := outputConfig.VerifyConfig(); err != nil {
			return fmt.Errorf("outputs[%d]%w", i, err)
		}
		if names[outputConfig.Name] {
			return fmt.Errorf("outputs[%d].name: duplicated '%s'", i, outputConfig.Name)
		}
		names[outputConfig.Name] = true
	}
	for i, inputConfig := range config.Inputs {
		if inputConfig.Value == nil {
			return fmt.Errorf("inputs[%d] is empty", i)
		}
		if err := inputConfig.Value.VerifyConfig(); err != nil {
			return fmt.Errorf("inputs[%d]%w", i, err)
		}
	}
	return nil
}

// VerifyConfig verifies the output config, returning errors with relative paths such as ".name is unspecified"
func (cfg *OutputConfig) VerifyConfig() error {
	if len(cfg.Name) == 0 {
		return fmt.Errorf(".name is unspecified")
	}
	if cfg.FilterType != "" && cfg.FilterType != FilterTypeBuffered {
		return fmt.Errorf(".filterType: unsupported '%s'", cfg.FilterType)
	}
	if cfg.Store.Value != nil {
		if err := cfg.Store.Value.VerifyConfig(); err != nil {
			return fmt.Errorf(".store%w", err)
		}
	}
	if cfg.Transport.Value != nil {
		if err := cfg.Transport.Value.VerifyConfig(); err != nil {
			return fmt.Errorf(".transport%w", err)
		}
	}
	return nil
}

// MarshalYAML provides custom marshalling to export readable document. The result is not reversible.
func (holder AnchorsConfig) MarshalYAML() (interface{}, error) {
	return []string(nil), nil
}

// UnmarshalYAML provides custom unmarshalling for the implementations of Config
func (holder *AnchorsConfig) UnmarshalYAML(value *yaml.Node) error {
	return nil
}
