package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
)

// BuildCapturePolicy snapshots the run-wide capture policy from the configuration.
// Exclusion patterns are compiled case-insensitively.
func BuildCapturePolicy(cfg *GlobalConfig) (models.CapturePolicy, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.InputConfig.ExcludePatterns))
	for _, p := range cfg.InputConfig.ExcludePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return models.CapturePolicy{}, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	protocol := strings.ToLower(cfg.InputConfig.DefaultProtocol)
	if protocol == "" {
		protocol = DefaultProtocol
	}

	workers := cfg.SchedulerConfig.ConcurrentWorkers
	if workers <= 0 {
		workers = DefaultConcurrentWorkers
	}
	timeoutSecs := cfg.SchedulerConfig.TimeoutSecs
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultTimeoutSecs
	}

	return models.CapturePolicy{
		Timeout:           time.Duration(timeoutSecs) * time.Second,
		MaxRetries:        cfg.SchedulerConfig.MaxRetries,
		RetryDelay:        time.Duration(cfg.SchedulerConfig.RetryDelaySecs) * time.Second,
		ConcurrentWorkers: workers,
		Viewports:         enabledViewports(cfg.CaptureConfig.Viewports),
		ExcludePatterns:   patterns,
		VerifySSL:         cfg.CaptureConfig.VerifySSL,
		DefaultProtocol:   protocol,
		HTTPPorts:         append([]int(nil), cfg.InputConfig.HTTPPorts...),
		HTTPSPorts:        append([]int(nil), cfg.InputConfig.HTTPSPorts...),
		FullPage:          cfg.CaptureConfig.FullPage,
		WaitAfterLoad:     time.Duration(cfg.CaptureConfig.WaitAfterLoadMs) * time.Millisecond,
		UserAgent:         cfg.CaptureConfig.UserAgent,
	}, nil
}

func enabledViewports(viewports []ViewportConfig) []models.Viewport {
	var out []models.Viewport
	for _, v := range viewports {
		if v.Enabled {
			out = append(out, models.Viewport{Name: v.Name, Width: v.Width, Height: v.Height})
		}
	}
	return out
}
