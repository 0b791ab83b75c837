package bconfig

// FilterSetting binds an output type and its settings to a tag pattern
//
// It's a plain value passed around by host applications; nothing here interprets the pattern
type FilterSetting struct {
	FilterType string                 `yaml:"filterType"`
	TagPattern string                 `yaml:"tagPattern"`
	Settings   map[string]interface{} `yaml:"settings"`
}

// NewFilterSetting creates a FilterSetting with a private copy of settings
func NewFilterSetting(filterType string, tagPattern string, settings map[string]interface{}) FilterSetting {
	copied := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		copied[k] = v
	}
	return FilterSetting{
		FilterType: filterType,
		TagPattern: tagPattern,
		Settings:   copied,
	}
}
