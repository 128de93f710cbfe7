package config

import (
	"github.com/Ning0612/xrdgate/internal/logger"
)

// LoggerConfig converts the log section into a logger configuration.
// Console output goes to stderr so command output stays clean on stdout.
func (l LogConfig) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(l.Level),
		Format:  logger.ParseFormat(l.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if l.File.Enabled {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(l.File.Path),
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxAgeDays: l.File.MaxAgeDays,
			MaxBackups: l.File.MaxBackups,
			Compress:   l.File.Compress,
		}
	}
	return cfg
}
