package config

import (
	"encoding/json"
	"path/filepath"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const maxConfigFileSize = 10 * 1024 * 1024

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	OutputDir             string                `json:"output_dir,omitempty" yaml:"output_dir,omitempty" validate:"required"`
	InputConfig           InputConfig           `json:"input_config,omitempty" yaml:"input_config,omitempty"`
	CaptureConfig         CaptureConfig         `json:"capture_config,omitempty" yaml:"capture_config,omitempty"`
	SchedulerConfig       SchedulerConfig       `json:"scheduler_config,omitempty" yaml:"scheduler_config,omitempty"`
	EnrichmentConfig      EnrichmentConfig      `json:"enrichment_config,omitempty" yaml:"enrichment_config,omitempty"`
	ReporterConfig        ReporterConfig        `json:"reporter_config,omitempty" yaml:"reporter_config,omitempty"`
	StorageConfig         StorageConfig         `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		OutputDir:             DefaultOutputDir,
		InputConfig:           NewDefaultInputConfig(),
		CaptureConfig:         NewDefaultCaptureConfig(),
		SchedulerConfig:       NewDefaultSchedulerConfig(),
		EnrichmentConfig:      NewDefaultEnrichmentConfig(),
		ReporterConfig:        NewDefaultReporterConfig(),
		StorageConfig:         NewDefaultStorageConfig(),
		LogConfig:             NewDefaultLogConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// It determines the config file path using GetConfigPath, supports both JSON and YAML formats.
// With no config file anywhere, defaults are returned.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath != "" {
		fileManager := common.NewFileManager(logger)
		if !fileManager.FileExists(providedPath) {
			return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
		}
	}

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		logger.Debug().Msg("No config file found, using defaults")
		return cfg, nil
	}

	fileManager := common.NewFileManager(logger)
	data, err := fileManager.ReadFile(filePath, maxConfigFileSize)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	logger.Info().Str("path", filePath).Msg("Configuration loaded")
	return cfg, nil
}

// ScreenshotDir resolves the screenshot directory against the output directory.
func (c *GlobalConfig) ScreenshotDir() string {
	return resolveUnder(c.OutputDir, c.CaptureConfig.ScreenshotDir)
}

// ResultsPath is where the finalized result set dump is written.
func (c *GlobalConfig) ResultsPath() string {
	return resolveUnder(c.OutputDir, c.StorageConfig.ResultsFileName)
}

// ParquetPath is where the parquet copy of the result set is written.
func (c *GlobalConfig) ParquetPath() string {
	return resolveUnder(c.OutputDir, c.StorageConfig.ParquetFileName)
}

// CommandsDir is where generated tool command files are written.
func (c *GlobalConfig) CommandsDir() string {
	return resolveUnder(c.OutputDir, c.ReporterConfig.CommandsDir)
}

// HistoryDBPath is the sqlite run history database.
func (c *GlobalConfig) HistoryDBPath() string {
	return resolveUnder(c.OutputDir, c.StorageConfig.HistoryDBPath)
}

func resolveUnder(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		return parseYAMLConfig(data, filePath, cfg)
	}
	return parseJSONConfig(data, filePath, cfg)
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

func parseYAMLConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
	}
	return nil
}

func parseJSONConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
