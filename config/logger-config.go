package config

type LoggerConfig struct {
	// Level is any level name logrus understands.
	Level string `yaml:"level"`
	// Format is either "text" or "json".
	Format string `yaml:"format"`
	// Output is "stderr", "stdout" or a file path.
	Output string `yaml:"output"`
}

func NewLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}
