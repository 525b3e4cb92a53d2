package config

// SchedulerConfig defines the worker pool, retry and timeout policy
type SchedulerConfig struct {
	ConcurrentWorkers      int      `json:"concurrent_workers,omitempty" yaml:"concurrent_workers,omitempty" validate:"omitempty,min=1,max=256"`
	TimeoutSecs            int      `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
	MaxRetries             int      `json:"max_retries" yaml:"max_retries" validate:"min=0,max=20"`
	RetryDelaySecs         int      `json:"retry_delay_secs" yaml:"retry_delay_secs" validate:"min=0"`
	TransientErrorPatterns []string `json:"transient_error_patterns,omitempty" yaml:"transient_error_patterns,omitempty"`
	EnrichmentTimeoutSecs  int      `json:"enrichment_timeout_secs,omitempty" yaml:"enrichment_timeout_secs,omitempty" validate:"omitempty,min=1"`
	Resume                 bool     `json:"resume" yaml:"resume"`
	// ProgressIntervalSecs is the period of the progress log line; 0 disables it.
	ProgressIntervalSecs int `json:"progress_interval_secs" yaml:"progress_interval_secs" validate:"min=0"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ConcurrentWorkers: DefaultConcurrentWorkers,
		TimeoutSecs:       DefaultTimeoutSecs,
		MaxRetries:        DefaultMaxRetries,
		RetryDelaySecs:    DefaultRetryDelaySecs,
		TransientErrorPatterns: []string{
			"ERR_CONNECTION_RESET",
			"ERR_CONNECTION_CLOSED",
			"ERR_EMPTY_RESPONSE",
			"ERR_TIMED_OUT",
			"ERR_NETWORK_CHANGED",
		},
		EnrichmentTimeoutSecs: DefaultEnrichmentTimeoutSecs,
		Resume:                false,
		ProgressIntervalSecs:  DefaultProgressIntervalSecs,
	}
}
