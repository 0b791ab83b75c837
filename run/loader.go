package run

import (
	"fmt"

	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/logstore/memstore"
	"github.com/relex/slog-shipper/output/bufferedoutput"
	"github.com/relex/slog-shipper/output/nulloutput"
)

// Loader loads configuration from file and prepares the environments to be launched
//
// Loader should take care of everything derived from the config file, but not trigger anything automatically
//
// Outputs and inputs are exposed in place of a simple main loop to allow customization, see Run()
type Loader struct {
	filepath string // config file path

	Config
	MetricFactory *base.MetricFactory
	EventBus      *base.EventBus
}

// NewLoaderFromConfigFile parses and verifies the config file
func NewLoaderFromConfigFile(filepath string, metricPrefix string) (*Loader, error) {
	config, configErr := ParseConfigFile(filepath)
	if configErr != nil {
		return nil, configErr
	}

	return &Loader{
		filepath: filepath,

		Config:        config,
		MetricFactory: base.NewMetricFactory(metricPrefix, nil, nil),
		EventBus:      base.NewEventBus(),
	}, nil
}

// LaunchOutputs creates all outputs with their stores and transports, in the stopped state
func (loader *Loader) LaunchOutputs(parentLogger logger.Logger) (*OutputSet, error) {
	set := &OutputSet{
		logger:  parentLogger.WithField(defs.LabelComponent, "OutputSet"),
		outputs: make([]*bufferedoutput.Output, 0, len(loader.Outputs)),
		writers: make([]base.ChunkWriter, 0, len(loader.Outputs)),
		stores:  make([]base.LogStore, 0, len(loader.Outputs)),
	}

	for index, outputConfig := range loader.Outputs {
		outputLogger := parentLogger.WithField(defs.LabelName, outputConfig.Name)

		var store base.LogStore
		if outputConfig.Store.Value != nil {
			s, err := outputConfig.Store.Value.NewStore(outputLogger, loader.MetricFactory)
			if err != nil {
				set.Shutdown()
				return nil, fmt.Errorf("outputs[%d].store: %w", index, err)
			}
			store = s
		} else {
			store = memstore.NewStore(outputLogger)
		}
		set.stores = append(set.stores, store)

		transportMetricFactory := loader.MetricFactory.NewSubFactory("", []string{"output"}, []string{outputConfig.Name})
		var writer base.ChunkWriter
		if outputConfig.Transport.Value != nil {
			w, err := outputConfig.Transport.Value.NewChunkWriter(outputLogger, transportMetricFactory)
			if err != nil {
				set.Shutdown()
				return nil, fmt.Errorf("outputs[%d].transport: %w", index, err)
			}
			writer = w
		} else {
			writer = nulloutput.NewWriter(outputLogger, transportMetricFactory)
		}
		set.writers = append(set.writers, writer)

		out := bufferedoutput.NewOutput(parentLogger, bufferedoutput.Args{
			Name:     outputConfig.Name,
			Settings: bufferedoutput.ParseSettings(outputConfig.Settings),
			Store:    store,
			Writer:   writer,
			Events:   loader.EventBus,
			Clock:    nil,
		}, loader.MetricFactory)
		set.outputs = append(set.outputs, out)
	}
	return set, nil
}

// outputIDLister is implemented by store configs able to list outputs with persisted logs, e.g. filestore
type outputIDLister interface {
	ListOutputIDs(parentLogger logger.Logger) []string
}

// FindOrphanOutputIDs lists IDs of outputs with persisted logs in configured stores but absent from the config
//
// Logs of such outputs are never retrieved until an output with the same name is configured again.
func (loader *Loader) FindOrphanOutputIDs(parentLogger logger.Logger) []string {
	configured := make(map[string]bool, len(loader.Outputs))
	for _, outputConfig := range loader.Outputs {
		configured[outputConfig.Name] = true
	}
	seen := make(map[string]bool)
	orphans := make([]string, 0)
	for _, outputConfig := range loader.Outputs {
		lister, ok := outputConfig.Store.Value.(outputIDLister)
		if !ok {
			continue
		}
		for _, id := range lister.ListOutputIDs(parentLogger) {
			if configured[id] || seen[id] {
				continue
			}
			seen[id] = true
			orphans = append(orphans, id)
		}
	}
	return orphans
}

// LaunchInputs starts all inputs in background and returns a function to shut them down
//
// The returned shutdown function only shuts down the inputs, not the outputs
func (loader *Loader) LaunchInputs(emitter base.LogEmitter) (func(), error) {
	inputs := make([]base.LogInput, 0, len(loader.Inputs))
	shutdown := func() {
		if len(inputs) == 0 {
			return
		}
		stoppedSignals := make([]channels.Awaitable, 0, len(inputs))
		for _, in := range inputs {
			in.Stop()
			stoppedSignals = append(stoppedSignals, in.Stopped())
		}
		channels.AllAwaitables(stoppedSignals...).WaitForever()
	}

	for index, inputConfig := range loader.Inputs {
		in, err := inputConfig.Value.NewInput(logger.Root(), emitter, loader.MetricFactory)
		if err != nil {
			shutdown()
			return nil, fmt.Errorf("inputs[%d]: %w", index, err)
		}
		in.Start()
		inputs = append(inputs, in)
	}
	return shutdown, nil
}
