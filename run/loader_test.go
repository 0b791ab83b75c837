package run

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/xattr"
	dto "github.com/prometheus/client_model/go"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promext"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/relex/slog-shipper/logstore/filestore"
	"github.com/relex/slog-shipper/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConf = `
anchors: []
outputs:
  - name: main
    filterType: buffered
    tagPattern: "app.**"
    settings:
      logLimit: true
      flushInterval: false
    store:
      type: sqlite
      path: %s
    transport:
      type: httpJSON
      upstream:
        address: %s
        httpTimeout: 5s
  - name: discard
inputs:
  - type: tail
    paths: [%s]
    tag: app.test
    fromStart: true
    poll: true
`

func TestLoader(t *testing.T) {
	defs.EnableTestMode()
	workDir := t.TempDir()

	eventsCh := make(chan map[string]string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var events []map[string]string
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&events)) {
			for _, evt := range events {
				eventsCh <- evt
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logFile := filepath.Join(workDir, "app.log")
	require.NoError(t, os.WriteFile(logFile, []byte("Hello Foo\nHello Bar\n"), 0o644))

	confFile := writeTestConfig(t, workDir, fmt.Sprintf(sampleConf, filepath.Join(workDir, "store.db"), srv.URL,
		filepath.Join(workDir, "*.log")))

	ld, confErr := NewLoaderFromConfigFile(confFile, t.Name()+"_")
	require.NoError(t, confErr)
	assert.Equal(t, 2, len(ld.Outputs))
	assert.Equal(t, "app.**", ld.Outputs[0].TagPattern)

	events := ld.EventBus.SubscribeChannel(100)

	outputs, outputErr := ld.LaunchOutputs(logger.Root())
	require.NoError(t, outputErr)
	assert.Equal(t, 1, outputs.Outputs()[0].Settings().LogLimit)
	assert.Equal(t, defs.DefaultOutputLogLimit, outputs.Outputs()[1].Settings().LogLimit)
	outputs.Start()

	shutdownInputs, inputErr := ld.LaunchInputs(outputs)
	require.NoError(t, inputErr)

	messages := make([]string, 0, 2)
	for len(messages) < 2 {
		select {
		case evt := <-eventsCh:
			assert.Equal(t, "app.test", evt["tag"])
			assert.Equal(t, logFile, evt["path"])
			messages = append(messages, evt["message"])
		case <-time.After(defs.TestReadTimeout):
			require.Fail(t, "timeout waiting for logs")
		}
	}
	assert.ElementsMatch(t, []string{"Hello Foo", "Hello Bar"}, messages)

	gatherer := ld.MetricFactory.Gatherer()
	assert.Eventually(t, func() bool {
		metricFamilies, err := gatherer.Gather()
		return err == nil && getMetricValue(t, metricFamilies, "output_written_logs_total", map[string]string{"output": "main"}) == 2
	}, defs.TestReadTimeout, 20*time.Millisecond)

	shutdownInputs()
	outputs.Shutdown()

	metricFamilies, promErr := gatherer.Gather()
	require.NoError(t, promErr)
	assert.Equal(t, float64(2), getMetricValue(t, metricFamilies, "output_emitted_logs_total", map[string]string{"output": "discard"}))
	assert.Equal(t, float64(2), getMetricValue(t, metricFamilies, "input_passed_logs_total", map[string]string{"type": "tail"}))
	assert.NotEmpty(t, events)
}

func TestLoaderConfigErrors(t *testing.T) {
	workDir := t.TempDir()

	for _, c := range []struct {
		name string
		conf string
		err  string
	}{
		{"no outputs", "outputs: []\n", "outputs is empty"},
		{"missing name", "outputs:\n  - settings: {}\n", "outputs[0].name is unspecified"},
		{"duplicated name", "outputs:\n  - name: a\n  - name: a\n", "outputs[1].name: duplicated 'a'"},
		{"unknown filter type", "outputs:\n  - name: a\n    filterType: x\n", "outputs[0].filterType: unsupported 'x'"},
		{"unknown store", "outputs:\n  - name: a\n    store:\n      type: redis\n", ".type: unsupported 'redis'"},
		{"unknown field", "outputs:\n  - name: a\n    store:\n      type: memory\n      path: x\n", "field path not found"},
		{"invalid store", "outputs:\n  - name: a\n    store:\n      type: sqlite\n", "outputs[0].store.path is unspecified"},
	} {
		t.Run(c.name, func(t *testing.T) {
			confFile := writeTestConfig(t, workDir, c.conf)
			_, err := NewLoaderFromConfigFile(confFile, "")
			assert.ErrorContains(t, err, c.err)
		})
	}
}

func writeTestConfig(t *testing.T, dir string, contents string) string {
	confFile, err := os.CreateTemp(dir, "config-*.yml")
	require.NoError(t, err)
	_, err = confFile.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, confFile.Close())
	return confFile.Name()
}

func getMetricValue(t *testing.T, metricFamilies []*dto.MetricFamily, name string, labels map[string]string) float64 {
	mf := findMetricFamily(t, metricFamilies, name)
	if mf == nil {
		return 0
	}

	return promext.SumExportedMetrics(mf, labels)
}

func findMetricFamily(t *testing.T, metricFamilies []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range metricFamilies {
		if mf.GetName() == t.Name()+"_"+name {
			return mf
		}
	}
	return nil
}

func TestSampleConfig(t *testing.T) {
	config, err := ParseConfigFile(testdata.GetConfigPath())
	require.NoError(t, err)
	require.Equal(t, 3, len(config.Outputs))
	assert.Equal(t, "main", config.Outputs[0].Name)
	assert.Equal(t, "fluentdForward", config.Outputs[0].Transport.Value.GetType())
	assert.Equal(t, "sqlite", config.Outputs[1].Store.Value.GetType())
	assert.Equal(t, true, config.Outputs[1].Settings[defs.SettingLogLimitLong])
	assert.Nil(t, config.Outputs[2].Settings)
	assert.Equal(t, 1, len(config.Inputs))
}

func TestFindOrphanOutputIDs(t *testing.T) {
	workDir := t.TempDir()
	if err := xattr.Set(workDir, "user.slogshipperProbe", []byte("probe")); err != nil {
		t.Skipf("xattr unsupported in %s: %s", workDir, err.Error())
	}
	rootPath := filepath.Join(workDir, "queue")

	oldStore, err := filestore.NewStore(logger.Root(), rootPath, 1024*1024, base.NewMetricFactory(t.Name()+"_", nil, nil))
	require.NoError(t, err)
	log := base.NewLogRecord("app", time.Now(), "left over", nil)
	require.NoError(t, oldStore.Add(context.Background(), "old", log))
	require.NoError(t, oldStore.Add(context.Background(), "main", log))
	require.NoError(t, oldStore.Close())

	confFile := writeTestConfig(t, workDir, fmt.Sprintf(`
outputs:
  - name: main
    store:
      type: file
      rootPath: %s
      maxStoreSize: 1MB
  - name: events
`, rootPath))
	ld, confErr := NewLoaderFromConfigFile(confFile, t.Name()+"_")
	require.NoError(t, confErr)
	assert.Equal(t, []string{"old"}, ld.FindOrphanOutputIDs(logger.Root()))
}
