package config

type TreeConfig struct {
	MaxKeys        int `yaml:"max_keys"`
	MaxEntriesLeaf int `yaml:"max_entries_leaf"`
}

func NewTreeConfig() *TreeConfig {
	return &TreeConfig{
		MaxKeys:        511,
		MaxEntriesLeaf: 340,
	}
}
