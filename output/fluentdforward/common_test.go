package fluentdforward

import (
	"time"

	"github.com/relex/slog-shipper/base"
)

var testChunk = base.LogChunk{
	ID: "3c3a2d1e-5b7f-4a71-9b0e-1f2c3d4e5f60",
	Logs: []base.LogRecord{
		{
			ID:      "log-1",
			Tag:     "app.cron",
			Time:    time.Date(2020, 7, 20, 3, 48, 20, 154000000, time.UTC),
			Message: "[Initializer] - Hello Foo",
			Fields:  map[string]string{"level": "debug", "host": "host1"},
		},
		{
			ID:      "log-2",
			Tag:     "",
			Time:    time.Date(2020, 7, 20, 3, 48, 33, 760000000, time.UTC),
			Message: "Hello Bar",
			Fields:  map[string]string{"level": "info", "log": "shadowed"},
		},
	},
	RetryCount: 0,
}

var testRecordMaps = []map[string]interface{}{
	{
		"level": "debug",
		"host":  "host1",
		"tag":   "app.cron",
		"log":   "[Initializer] - Hello Foo",
	},
	{
		"level": "info",
		"log":   "Hello Bar",
	},
}
