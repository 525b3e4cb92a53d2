package models

import (
	"regexp"
	"time"
)

// Viewport is one screen size to capture.
type Viewport struct {
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

var (
	DesktopViewport = Viewport{Name: "desktop", Width: 1920, Height: 1080}
	TabletViewport  = Viewport{Name: "tablet", Width: 768, Height: 1024}
	MobileViewport  = Viewport{Name: "mobile", Width: 375, Height: 667}
)

// CapturePolicy is the configuration snapshot applied uniformly to every target of a run.
// It is built once at startup and passed by value; nothing mutates it afterwards.
type CapturePolicy struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	ConcurrentWorkers int
	Viewports         []Viewport
	ExcludePatterns   []*regexp.Regexp
	VerifySSL         bool
	DefaultProtocol   string
	HTTPPorts         []int
	HTTPSPorts        []int
	FullPage          bool
	WaitAfterLoad     time.Duration
	UserAgent         string
}

// Excluded reports whether the normalized URL matches any exclusion pattern.
func (p CapturePolicy) Excluded(normalizedURL string) bool {
	for _, re := range p.ExcludePatterns {
		if re.MatchString(normalizedURL) {
			return true
		}
	}
	return false
}

// MaxAttempts is the initial attempt plus the retry budget.
func (p CapturePolicy) MaxAttempts() int {
	return p.MaxRetries + 1
}
