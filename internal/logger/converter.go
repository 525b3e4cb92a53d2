package logger

import (
	"github.com/aleister1102/pendoc/internal/config"
)

// ConfigConverter converts config.LogConfig to LoggerConfig
type ConfigConverter struct {
	levelParser  *LogLevelParser
	formatParser *LogFormatParser
}

// NewConfigConverter creates a new config converter
func NewConfigConverter() *ConfigConverter {
	return &ConfigConverter{
		levelParser:  NewLogLevelParser(),
		formatParser: NewLogFormatParser(),
	}
}

// ConvertConfig converts application config to logger config
func (cc *ConfigConverter) ConvertConfig(cfg config.LogConfig) (LoggerConfig, error) {
	out := DefaultLoggerConfig()

	level, err := cc.levelParser.ParseLevel(cfg.LogLevel)
	out.Level = level
	out.Format = cc.formatParser.ParseFormat(cfg.LogFormat)
	out.EnableFile = cfg.LogFile != ""
	out.FilePath = cfg.LogFile

	if cfg.MaxLogSizeMB > 0 {
		out.MaxSizeMB = cfg.MaxLogSizeMB
	}
	if cfg.MaxLogBackups > 0 {
		out.MaxBackups = cfg.MaxLogBackups
	}

	return out, err
}
