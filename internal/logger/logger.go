package logger

import (
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/rs/zerolog"
)

// New creates the application logger from configuration
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg).Build()
}

// NewWithRunID creates a logger whose file output is grouped per run
func NewWithRunID(cfg config.LogConfig, runID string) (zerolog.Logger, error) {
	return NewLoggerBuilder().
		WithConfig(cfg).
		WithRunID(runID).
		Build()
}
