// Package logstore registers the list of all log store implementations
package logstore

import (
	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/logstore/filestore"
	"github.com/relex/slog-shipper/logstore/memstore"
	"github.com/relex/slog-shipper/logstore/sqlitestore"
)

func init() {
	bconfig.RegisterConfigConstructors(bconfig.LogStoreConfigCreatorTable{
		"file":   func() bconfig.LogStoreConfig { return &filestore.Config{} },
		"memory": func() bconfig.LogStoreConfig { return &memstore.Config{} },
		"sqlite": func() bconfig.LogStoreConfig { return &sqlitestore.Config{} },
	})
}

// Register registers all log store config types
func Register() {
	// trigger init()
}
