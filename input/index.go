// Package input registers the list of all LogInput implementations
package input

import (
	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/input/tailinput"
)

func init() {
	bconfig.RegisterConfigConstructors(bconfig.LogInputConfigCreatorTable{
		"tail": func() bconfig.LogInputConfig { return &tailinput.Config{} },
	})
}

// Register registers all input config types
func Register() {
	// trigger init()
}
