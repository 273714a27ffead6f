package config

import "os"

type StorageConfig struct {
	Path       string      `yaml:"path"`
	CacheSize  int         `yaml:"cache_size"`
	EvictRatio float64     `yaml:"evict_ratio"`
	ReadOnly   bool        `yaml:"read_only"`
	FileMode   os.FileMode `yaml:"file_mode"`
}

func NewStorageConfig() *StorageConfig {
	return &StorageConfig{
		Path:       "data/bpt.db",
		CacheSize:  256,
		EvictRatio: 0.8,
		FileMode:   0644,
	}
}
