package defs

// Common labels for logging
const (
	LabelComponent = "component"
	LabelName      = "name"
	LabelRemote    = "remote"
)

// Keys in output settings, accepted in both the short and the long forms
const (
	SettingLogLimit      = "logLimit"
	SettingFlushInterval = "flushInterval"
	SettingMaxRetryCount = "maxRetryCount"

	SettingLogLimitLong      = "BufferedOutputLogLimit"
	SettingFlushIntervalLong = "BufferedOutputFlushInterval"
	SettingMaxRetryCountLong = "BufferedOutputMaxRetryCount"
)

// Values chosen by output settings
const (
	DefaultOutputLogLimit      = 5
	DefaultOutputFlushInterval = 10 // in TimeUnit
	DefaultOutputMaxRetryCount = 3

	AlternateOutputLogLimit      = 1
	AlternateOutputFlushInterval = 1 // in TimeUnit
	AlternateOutputMaxRetryCount = 1
)
