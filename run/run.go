// Package run runs the actual log shipper
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/util"
)

// Run runs the shipper until stopped by signals
//
// SIGUSR1 suspends all outputs and SIGUSR2 resumes them, as when the host application goes to background and back.
func Run(configFile string, metricsAddress string) {
	loader, loaderErr := NewLoaderFromConfigFile(configFile, "slogshipper_")
	if loaderErr != nil {
		logger.Fatal(loaderErr)
	}

	runLogger := logger.WithField(defs.LabelComponent, "Launcher")
	msrv := util.LaunchMetricsListener(metricsAddress, prometheus.Gatherers{prometheus.DefaultGatherer, loader.MetricFactory.Gatherer()})
	metrics := newLifecycleMetrics(loader.MetricFactory)
	loader.EventBus.Subscribe(base.EventSinkFunc(func(event base.OutputEvent) {
		runLogger.Debugf("event %s", event)
	}))

	outputs, outputErr := loader.LaunchOutputs(logger.Root())
	if outputErr != nil {
		logger.Fatal(outputErr)
	}
	for _, id := range loader.FindOrphanOutputIDs(logger.Root()) {
		runLogger.Warnf("persisted logs of unconfigured output '%s' are kept but not delivered", id)
	}
	outputs.Start()

	shutdownInputs, inputErr := loader.LaunchInputs(outputs)
	if inputErr != nil {
		outputs.Shutdown()
		logger.Fatal(inputErr)
	}

	// wait for signals
	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
SIGNAL_LOOP:
	for s := range sigChan {
		switch s {
		case syscall.SIGUSR1:
			runLogger.Infof("received %s, suspending", s)
			metrics.suspendsTotal.Inc()
			outputs.Suspend()
		case syscall.SIGUSR2:
			runLogger.Infof("received %s, resuming", s)
			metrics.resumesTotal.Inc()
			outputs.Resume()
		default:
			runLogger.Infof("received %s, shutting down", s)
			break SIGNAL_LOOP
		}
	}
	signal.Stop(sigChan)

	shutdownInputs()
	outputs.Shutdown()
	if err := msrv.Shutdown(context.Background()); err != nil {
		runLogger.Errorf("error shutting down metrics listener: %v", err)
	}
	runLogger.Info("clean exit")
}
