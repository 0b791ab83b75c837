// Package output registers the list of all transport implementations
package output

import (
	"github.com/relex/slog-shipper/base/bconfig"
	"github.com/relex/slog-shipper/output/beats"
	"github.com/relex/slog-shipper/output/fluentdforward"
	"github.com/relex/slog-shipper/output/httpjson"
	"github.com/relex/slog-shipper/output/nulloutput"
)

func init() {
	bconfig.RegisterConfigConstructors(bconfig.ChunkWriterConfigCreatorTable{
		"beats":          func() bconfig.ChunkWriterConfig { return &beats.Config{} },
		"fluentdForward": func() bconfig.ChunkWriterConfig { return &fluentdforward.Config{} },
		"httpJSON":       func() bconfig.ChunkWriterConfig { return &httpjson.Config{} },
		"null":           func() bconfig.ChunkWriterConfig { return &nulloutput.Config{} },
	})
}

// Register registers all transport config types
func Register() {
	// trigger init()
}
