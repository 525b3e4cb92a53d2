package config

// ReporterConfig defines configuration for report generation
type ReporterConfig struct {
	ReportTitle             string `json:"report_title,omitempty" yaml:"report_title,omitempty"`
	ReportFileName          string `json:"report_file_name,omitempty" yaml:"report_file_name,omitempty"`
	TemplatePath            string `json:"template_path,omitempty" yaml:"template_path,omitempty" validate:"omitempty,fileexists"`
	MaxResultsPerReportFile int    `json:"max_results_per_report_file,omitempty" yaml:"max_results_per_report_file,omitempty" validate:"omitempty,min=1"`
	GenerateCommands        bool   `json:"generate_commands" yaml:"generate_commands"`
	CommandsDir             string `json:"commands_dir,omitempty" yaml:"commands_dir,omitempty"`
}

// NewDefaultReporterConfig creates default reporter configuration
func NewDefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		ReportTitle:             DefaultReportTitle,
		ReportFileName:          DefaultReportFileName,
		MaxResultsPerReportFile: DefaultMaxResultsPerReportFile,
		GenerateCommands:        true,
		CommandsDir:             DefaultCommandsDir,
	}
}
