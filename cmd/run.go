package cmd

import (
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/run"
)

type runCommandState struct {
	Config      string `help:"Configuration file path"`
	MetricsAddr string `help:"The listener address to expose Prometheus metrics and debug information"`
	TestMode    bool   `help:"Use test mode config: short time unit, fast retry and short timeout"`
}

var runCmd runCommandState = runCommandState{
	Config:      "config.yml",
	MetricsAddr: ":9336",
	TestMode:    false,
}

func (cmd *runCommandState) run(args []string) {
	if cmd.TestMode {
		defs.EnableTestMode()
	}

	run.Run(cmd.Config, cmd.MetricsAddr)
}
