package tailinput

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/base/bconfig"
)

// Config provides configuration for tail input
type Config struct {
	bconfig.Header `yaml:",inline"`
	Paths          []string `yaml:"paths"`     // glob patterns of absolute file paths, e.g. "/var/log/app/**.log"
	Tag            string   `yaml:"tag"`       // tag of emitted logs
	FromStart      bool     `yaml:"fromStart"` // read files present at startup from the beginning instead of the end
	Poll           bool     `yaml:"poll"`      // poll for changes instead of using inotify
}

// NewInput creates a tail input, which starts reading after Start()
func (cfg *Config) NewInput(parentLogger logger.Logger, emitter base.LogEmitter, metricFactory *base.MetricFactory) (base.LogInput, error) {
	patterns, err := compilePatterns(cfg.Paths)
	if err != nil {
		return nil, err
	}
	return newInput(parentLogger, *cfg, patterns, emitter, metricFactory), nil
}

// VerifyConfig checks configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Paths) == 0 {
		return fmt.Errorf(".paths is empty")
	}
	if len(cfg.Tag) == 0 {
		return fmt.Errorf(".tag is unspecified")
	}
	if _, err := compilePatterns(cfg.Paths); err != nil {
		return err
	}
	return nil
}

// pathPattern is a compiled glob pattern and the fixed directory to start searching from
type pathPattern struct {
	expr    string
	baseDir string
	glob    glob.Glob
}

func compilePatterns(paths []string) ([]pathPattern, error) {
	patterns := make([]pathPattern, 0, len(paths))
	for i, expr := range paths {
		if !filepath.IsAbs(expr) {
			return nil, fmt.Errorf(".paths[%d]: '%s' is not an absolute path", i, expr)
		}
		g, err := glob.Compile(expr, filepath.Separator)
		if err != nil {
			return nil, fmt.Errorf(".paths[%d]: %w", i, err)
		}
		patterns = append(patterns, pathPattern{
			expr:    expr,
			baseDir: globBaseDir(expr),
			glob:    g,
		})
	}
	return patterns, nil
}

// globBaseDir returns the longest leading directory of the pattern without any special character
func globBaseDir(expr string) string {
	dir := filepath.Dir(expr)
	for {
		if !hasGlobMeta(dir) {
			return dir
		}
		dir = filepath.Dir(dir)
	}
}

func hasGlobMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}
