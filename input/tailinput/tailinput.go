// Package tailinput provides an input which follows local files matched by glob patterns, emitting one log per line
//
// Patterns are re-evaluated periodically. Rotated files are reopened by name.
package tailinput

import (
	"io"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/hpcloud/tail"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
)

// fieldPath is the log field holding the path of source file
const fieldPath = "path"

type input struct {
	logger      logger.Logger
	config      Config
	patterns    []pathPattern
	emitter     base.LogEmitter
	files       map[string]*tail.Tail // owned by scanner loop
	stopRequest *channels.SignalAwaitable
	taskCounter *sync.WaitGroup
	stopped     channels.Awaitable
	metrics     inputMetrics
}

type inputMetrics struct {
	openedFiles  prometheus.Counter
	passedLogs   prometheus.Counter
	readErrors   prometheus.Counter
	followedFile prometheus.Gauge
}

func newInput(parentLogger logger.Logger, config Config, patterns []pathPattern, emitter base.LogEmitter,
	metricFactory *base.MetricFactory) *input {

	factory := metricFactory.NewSubFactory("input_", []string{"type", "tag"}, []string{"tail", config.Tag})

	// init taskCounter with 1 for the scanner; Can't wait for Start() because WaitGroupAwaitable would quit immediately if it's zero.
	taskCounter := &sync.WaitGroup{}
	taskCounter.Add(1)

	return &input{
		logger: parentLogger.WithFields(logger.Fields{
			defs.LabelComponent: "TailInput",
			defs.LabelName:      config.Tag,
		}),
		config:      config,
		patterns:    patterns,
		emitter:     emitter,
		files:       make(map[string]*tail.Tail),
		stopRequest: channels.NewSignalAwaitable(),
		taskCounter: taskCounter,
		stopped:     channels.NewWaitGroupAwaitable(taskCounter),
		metrics: inputMetrics{
			openedFiles:  factory.AddOrGetCounter("opened_files_total", "Numbers of files opened for tailing", nil, nil),
			passedLogs:   factory.AddOrGetCounter("passed_logs_total", "Numbers of logs read and emitted", nil, nil),
			readErrors:   factory.AddOrGetCounter("read_errors_total", "Numbers of errors reading files", nil, nil),
			followedFile: factory.AddOrGetGauge("followed_files", "Numbers of files being followed", nil, nil),
		},
	}
}

func (in *input) Start() {
	go in.run()
}

func (in *input) Stop() {
	in.stopRequest.Signal()
}

func (in *input) Stopped() channels.Awaitable {
	return in.stopped
}

func (in *input) run() {
	defer in.taskCounter.Done()
	in.logger.Info("started")

	in.scan(true)
	for !in.stopRequest.Wait(defs.InputScanInterval) {
		in.scan(false)
	}

	in.logger.Infof("stop requested, closing %d files", len(in.files))
	for path, t := range in.files {
		if err := t.Stop(); err != nil {
			in.logger.Warnf("error stopping tail of %s: %s", path, err.Error())
		}
		t.Cleanup()
	}
	in.logger.Info("stopped")
}

// scan looks for new files matching the patterns and starts following them
//
// Files found in the first scan are read from the end unless FromStart is set. Later files are always read from
// the beginning since they're created after startup.
func (in *input) scan(initial bool) {
	for _, pattern := range in.patterns {
		err := filepath.WalkDir(pattern.baseDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == pattern.baseDir {
					return err
				}
				in.logger.Debugf("skip %s: %s", path, err.Error())
				return nil
			}
			if d.IsDir() || !pattern.glob.Match(path) {
				return nil
			}
			if _, exists := in.files[path]; exists {
				return nil
			}
			in.follow(path, initial && !in.config.FromStart)
			return nil
		})
		if err != nil {
			in.logger.Warnf("failed to scan '%s': %s", pattern.expr, err.Error())
		}
	}
}

func (in *input) follow(path string, fromEnd bool) {
	location := &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	if fromEnd {
		location.Whence = io.SeekEnd
	}
	t, err := tail.TailFile(path, tail.Config{
		Location:    location,
		ReOpen:      true,
		MustExist:   true,
		Poll:        in.config.Poll,
		Follow:      true,
		MaxLineSize: defs.InputLogMaxMessageBytes,
		Logger:      tail.DiscardingLogger,
	})
	if err != nil {
		in.logger.Warnf("failed to open %s: %s", path, err.Error())
		in.metrics.readErrors.Inc()
		return
	}
	in.logger.Infof("following %s (fromEnd=%t)", path, fromEnd)
	in.files[path] = t
	in.metrics.openedFiles.Inc()
	in.metrics.followedFile.Inc()

	in.taskCounter.Add(1)
	go in.runFile(path, t)
}

func (in *input) runFile(path string, t *tail.Tail) {
	defer in.taskCounter.Done()
	defer in.metrics.followedFile.Dec()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				in.logger.Infof("stopped following %s", path)
				return
			}
			if line.Err != nil {
				in.logger.Warnf("error reading %s: %s", path, line.Err.Error())
				in.metrics.readErrors.Inc()
				continue
			}
			tm := line.Time
			if tm.IsZero() {
				tm = time.Now()
			}
			in.emitter.EmitLog(base.NewLogRecord(in.config.Tag, tm, line.Text, map[string]string{fieldPath: path}))
			in.metrics.passedLogs.Inc()
		case <-in.stopRequest.Channel():
			return
		}
	}
}
