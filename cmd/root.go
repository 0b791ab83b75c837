package cmd

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/relex/gotils/logger"
)

type rootCommandState struct {
	CPUProfile string `name:"cpuprofile" help:"Write CPU profile to file on exit."`
	MemProfile string `name:"memprofile" help:"Write heap profile to file on exit."`

	cpuProfileFile *os.File
	memProfileFile *os.File
}

var rootCmd rootCommandState

func (cmd *rootCommandState) preRun() {
	if cmd.CPUProfile != "" {
		cmd.cpuProfileFile = createProfileFile("CPU", cmd.CPUProfile)
		if err := pprof.StartCPUProfile(cmd.cpuProfileFile); err != nil {
			logger.Fatalf("failed to start CPU profiling: %s", err.Error())
		}
	}
	if cmd.MemProfile != "" {
		cmd.memProfileFile = createProfileFile("memory", cmd.MemProfile)
	}
}

func (cmd *rootCommandState) postRun() {
	if cmd.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		cmd.cpuProfileFile.Close()
	}
	if cmd.memProfileFile != nil {
		runtime.GC()
		if err := pprof.WriteHeapProfile(cmd.memProfileFile); err != nil {
			logger.Errorf("failed to write memory profile: %s", err.Error())
		}
		cmd.memProfileFile.Close()
	}
}

func createProfileFile(kind string, path string) *os.File {
	f, err := os.Create(path)
	if err != nil {
		logger.Fatalf("failed to create %s profile %s: %s", kind, path, err.Error())
	}
	logger.Infof("%s profiling to %s", kind, path)
	return f
}
