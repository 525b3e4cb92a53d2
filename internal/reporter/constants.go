package reporter

const (
	DefaultReportTemplateName = "report.html.tmpl"
	embeddedTemplatePath      = "templates/report.html.tmpl"
	embeddedCSSPath           = "assets/css/styles.css"
	commandTemplatesGlob      = "templates/commands/*.tmpl"

	DefaultReportTitle       = "PenDoc Report"
	DefaultReportFileName    = "report"
	DefaultCommandsDir       = "commands"
	DefaultMaxResultsPerFile = 1000

	// File permissions
	DirPermissions    = 0o755
	FilePermissions   = 0o644
	ScriptPermissions = 0o755
)
