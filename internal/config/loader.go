package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader supplies validated pipeline configuration. The orchestrator resolves
// it once at startup and refreshes on demand.
type Loader interface {
	Load() (*Config, error)
}

// FileLoader reads YAML configuration from a file, layering it over the
// built-in defaults. A missing file yields the defaults unchanged.
type FileLoader struct {
	Path string
}

// NewFileLoader creates a FileLoader for the given path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// Load reads and validates the configuration. The file contents are unmarshaled
// on top of Default(), so partial files only override what they mention.
func (l *FileLoader) Load() (*Config, error) {
	cfg := Default()

	if l.Path != "" {
		data, err := os.ReadFile(l.Path)
		switch {
		case os.IsNotExist(err):
			// No file: defaults apply.
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", l.Path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", l.Path, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// StaticLoader returns a fixed configuration. Useful for tests and for callers
// that assemble config programmatically.
type StaticLoader struct {
	Config *Config
}

// Load validates and returns the held configuration.
func (l *StaticLoader) Load() (*Config, error) {
	if l.Config == nil {
		return nil, fmt.Errorf("static loader: no config set")
	}
	if err := l.Config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return l.Config, nil
}
