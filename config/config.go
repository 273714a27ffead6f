package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Storage *StorageConfig `yaml:"storage"`
	Tree    *TreeConfig    `yaml:"tree"`
	Logger  *LoggerConfig  `yaml:"logger"`
}

func New() *AppConfig {
	return &AppConfig{
		Storage: NewStorageConfig(),
		Tree:    NewTreeConfig(),
		Logger:  NewLoggerConfig(),
	}
}

// Load reads a YAML config file on top of the defaults. Sections and fields
// missing from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	cfg := New()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	if cfg.Storage == nil {
		cfg.Storage = NewStorageConfig()
	}
	if cfg.Tree == nil {
		cfg.Tree = NewTreeConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = NewLoggerConfig()
	}
	return cfg, nil
}
