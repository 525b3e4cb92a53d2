package config

// ViewportConfig describes one screen size; disabled viewports are not captured
type ViewportConfig struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Width   int    `json:"width" yaml:"width" validate:"min=100"`
	Height  int    `json:"height" yaml:"height" validate:"min=100"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// CaptureConfig holds configuration for the headless browser capture engine
type CaptureConfig struct {
	ChromePath         string            `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty" validate:"omitempty,fileexists"`
	Headless           bool              `json:"headless" yaml:"headless"`
	PoolSize           int               `json:"pool_size,omitempty" yaml:"pool_size,omitempty" validate:"omitempty,min=1"`
	UserAgent          string            `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Viewports          []ViewportConfig  `json:"viewports,omitempty" yaml:"viewports,omitempty" validate:"omitempty,dive"`
	FullPage           bool              `json:"full_page" yaml:"full_page"`
	WaitAfterLoadMs    int               `json:"wait_after_load_ms,omitempty" yaml:"wait_after_load_ms,omitempty" validate:"omitempty,min=0"`
	VerifySSL          bool              `json:"verify_ssl" yaml:"verify_ssl"`
	ExtraHeaders       map[string]string `json:"extra_headers,omitempty" yaml:"extra_headers,omitempty"`
	ScreenshotDir      string            `json:"screenshot_dir,omitempty" yaml:"screenshot_dir,omitempty"`
	HostRateLimitRPS   float64           `json:"host_rate_limit_rps,omitempty" yaml:"host_rate_limit_rps,omitempty" validate:"omitempty,min=0"`
	HostRateLimitBurst int               `json:"host_rate_limit_burst,omitempty" yaml:"host_rate_limit_burst,omitempty" validate:"omitempty,min=1"`
	BrowserArgs        []string          `json:"browser_args,omitempty" yaml:"browser_args,omitempty"`
}

// NewDefaultCaptureConfig creates default capture configuration
func NewDefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Headless:  true,
		UserAgent: DefaultUserAgent,
		Viewports: []ViewportConfig{
			{Name: "desktop", Width: 1920, Height: 1080, Enabled: true},
			{Name: "tablet", Width: 768, Height: 1024, Enabled: false},
			{Name: "mobile", Width: 375, Height: 667, Enabled: false},
		},
		FullPage:           DefaultFullPage,
		WaitAfterLoadMs:    DefaultWaitAfterLoadMs,
		VerifySSL:          DefaultVerifySSL,
		ExtraHeaders:       map[string]string{"Accept-Language": "en-US,en;q=0.9"},
		ScreenshotDir:      DefaultScreenshotDir,
		HostRateLimitRPS:   DefaultHostRateLimitRPS,
		HostRateLimitBurst: DefaultHostRateLimitBurst,
		BrowserArgs:        []string{"disable-dev-shm-usage", "disable-gpu"},
	}
}
