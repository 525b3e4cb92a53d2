package config

// ResourceLimiterConfig holds configuration for the memory-pressure admission gate
type ResourceLimiterConfig struct {
	Enabled            bool    `json:"enabled" yaml:"enabled"`
	MaxMemoryMB        int64   `json:"max_memory_mb,omitempty" yaml:"max_memory_mb,omitempty" validate:"omitempty,min=100"`
	SystemMemThreshold float64 `json:"system_mem_threshold,omitempty" yaml:"system_mem_threshold,omitempty" validate:"omitempty,min=0.1,max=1.0"`
	CheckIntervalSecs  int     `json:"check_interval_secs,omitempty" yaml:"check_interval_secs,omitempty" validate:"omitempty,min=1"`
	MaxWaitSecs        int     `json:"max_wait_secs,omitempty" yaml:"max_wait_secs,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultResourceLimiterConfig creates default resource limiter configuration
func NewDefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		Enabled:            true,
		MaxMemoryMB:        1024,
		SystemMemThreshold: 0.9,
		CheckIntervalSecs:  5,
		MaxWaitSecs:        60,
	}
}
