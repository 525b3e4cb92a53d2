package config

const (
	DefaultOutputDir = "pendoc_output"

	// Input Defaults
	DefaultProtocol        = "https"
	DefaultSubdomainFormat = "auto"

	// Capture Defaults
	DefaultUserAgent          = "Mozilla/5.0 PenDoc/1.0"
	DefaultWaitAfterLoadMs    = 2000
	DefaultFullPage           = true
	DefaultVerifySSL          = false
	DefaultScreenshotDir      = "screenshots"
	DefaultHostRateLimitRPS   = 0
	DefaultHostRateLimitBurst = 1

	// Scheduler Defaults
	DefaultConcurrentWorkers     = 5
	DefaultTimeoutSecs           = 30
	DefaultMaxRetries            = 2
	DefaultRetryDelaySecs        = 5
	DefaultEnrichmentTimeoutSecs = 15
	DefaultProgressIntervalSecs  = 5

	// Enrichment Defaults
	DefaultHTTPXTimeoutSecs     = 10
	DefaultPathProbeTimeoutSecs = 5
	DefaultPathProbeMaxPaths    = 12

	// Reporter Defaults
	DefaultReportTitle             = "PenDoc Report"
	DefaultReportFileName          = "report"
	DefaultMaxResultsPerReportFile = 500
	DefaultCommandsDir             = "commands"

	// Storage Defaults
	DefaultResultsFileName  = "results.json"
	DefaultParquetFileName  = "results.parquet"
	DefaultCompressionCodec = "zstd"
	DefaultHistoryDBPath    = "database/pendoc_history.db"

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// ConfigPathEnv overrides config discovery.
	ConfigPathEnv = "PENDOC_CONFIG_PATH"
)

var (
	DefaultHTTPPorts  = []int{80, 8000, 8080, 8888}
	DefaultHTTPSPorts = []int{443, 8443, 9443}
)
