package bufferedoutput

import (
	"fmt"
	"time"

	"github.com/relex/slog-shipper/defs"
)

// Selector chooses between the default and the alternate value of an output option
type Selector int

// Values of Selector
const (
	UseDefault Selector = iota
	UseAlternate
)

// SelectorOf interprets a raw setting value: only boolean true selects the alternate value
func SelectorOf(value interface{}) Selector {
	if b, ok := value.(bool); ok && b {
		return UseAlternate
	}
	return UseDefault
}

func (sel Selector) String() string {
	if sel == UseAlternate {
		return "alternate"
	}
	return "default"
}

// Settings contains the effective options of an Output
type Settings struct {
	LogLimit      int           // Max number of logs in a chunk; buffer length to trigger flushing
	FlushInterval time.Duration // Max time between flushes
	MaxRetryCount int           // Max number of retries of a failed chunk before dropping
}

// DefaultSettings returns the settings with no option selected
func DefaultSettings() Settings {
	return Settings{
		LogLimit:      defs.DefaultOutputLogLimit,
		FlushInterval: defs.DefaultOutputFlushInterval * defs.TimeUnit,
		MaxRetryCount: defs.DefaultOutputMaxRetryCount,
	}
}

// ParseSettings builds Settings from raw key-value options
//
// Keys may be given in short or long form. Unknown keys are ignored and any value other than true keeps the default.
func ParseSettings(raw map[string]interface{}) Settings {
	settings := DefaultSettings()
	if selectOption(raw, defs.SettingLogLimit, defs.SettingLogLimitLong) == UseAlternate {
		settings.LogLimit = defs.AlternateOutputLogLimit
	}
	if selectOption(raw, defs.SettingFlushInterval, defs.SettingFlushIntervalLong) == UseAlternate {
		settings.FlushInterval = defs.AlternateOutputFlushInterval * defs.TimeUnit
	}
	if selectOption(raw, defs.SettingMaxRetryCount, defs.SettingMaxRetryCountLong) == UseAlternate {
		settings.MaxRetryCount = defs.AlternateOutputMaxRetryCount
	}
	return settings
}

func selectOption(raw map[string]interface{}, keys ...string) Selector {
	for _, key := range keys {
		if value, ok := raw[key]; ok && SelectorOf(value) == UseAlternate {
			return UseAlternate
		}
	}
	return UseDefault
}

func (settings Settings) String() string {
	return fmt.Sprintf("logLimit=%d flushInterval=%s maxRetryCount=%d", settings.LogLimit, settings.FlushInterval, settings.MaxRetryCount)
}

// RetryDelay returns how long to wait before the given retry of a chunk, starting from 1
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		return 0
	}
	return defs.OutputRetryBaseDelay << (retryCount - 1)
}
