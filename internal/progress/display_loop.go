package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/pendoc/internal/scheduler"
	"github.com/rs/zerolog"
)

// ProgressDisplayConfig controls the periodic progress log line.
type ProgressDisplayConfig struct {
	DisplayInterval   time.Duration
	EnableProgress    bool
	ShowETAEstimation bool
}

// ProgressDisplayManager logs a Progress snapshot on an interval.
type ProgressDisplayManager struct {
	progress      *Progress
	config        ProgressDisplayConfig
	logger        zerolog.Logger
	mutex         sync.Mutex
	isRunning     bool
	stopChan      chan struct{}
	done          chan struct{}
	lastDisplayed string
}

// NewProgressDisplayManager wraps progress. A zero DisplayInterval disables the loop.
func NewProgressDisplayManager(progress *Progress, config ProgressDisplayConfig, logger zerolog.Logger) *ProgressDisplayManager {
	return &ProgressDisplayManager{
		progress: progress,
		config:   config,
		logger:   logger.With().Str("component", "ProgressDisplay").Logger(),
	}
}

// Observe forwards to the underlying Progress.
func (pdm *ProgressDisplayManager) Observe(change scheduler.StateChange) {
	pdm.progress.Observe(change)
}

// Start launches the display loop.
func (pdm *ProgressDisplayManager) Start() {
	pdm.mutex.Lock()
	defer pdm.mutex.Unlock()

	if pdm.isRunning || !pdm.config.EnableProgress || pdm.config.DisplayInterval <= 0 {
		return
	}
	pdm.isRunning = true
	pdm.stopChan = make(chan struct{})
	pdm.done = make(chan struct{})

	go pdm.displayLoop(time.NewTicker(pdm.config.DisplayInterval))
}

// Stop ends the loop and logs the final snapshot.
func (pdm *ProgressDisplayManager) Stop() {
	pdm.mutex.Lock()
	if !pdm.isRunning {
		pdm.mutex.Unlock()
		return
	}
	pdm.isRunning = false
	close(pdm.stopChan)
	done := pdm.done
	pdm.mutex.Unlock()

	<-done
	pdm.displayProgress()
}

func (pdm *ProgressDisplayManager) displayLoop(ticker *time.Ticker) {
	defer close(pdm.done)
	defer ticker.Stop()

	for {
		select {
		case <-pdm.stopChan:
			return
		case <-ticker.C:
			pdm.displayProgress()
		}
	}
}

func (pdm *ProgressDisplayManager) displayProgress() {
	info := pdm.progress.Info()
	output := pdm.formatProgress(info)
	if output == "" || output == pdm.lastDisplayed {
		return
	}
	pdm.lastDisplayed = output

	pdm.logger.Info().
		Int64("done", info.Current).
		Int64("total", info.Total).
		Int64("in_flight", info.InFlight).
		Int64("retry_scheduled", info.RetryScheduled).
		Int64("succeeded", info.Succeeded).
		Int64("failed", info.Failed).
		Int64("skipped", info.Skipped).
		Msg(output)
}

func (pdm *ProgressDisplayManager) formatProgress(info ProgressInfo) string {
	if info.Status == ProgressStatusIdle || info.Total <= 0 {
		return ""
	}

	percentage := info.GetPercentage()
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Capture: %s %.1f%% (%d/%d)",
		createProgressBar(percentage, 20), percentage, info.Current, info.Total))

	if info.InFlight > 0 || info.RetryScheduled > 0 {
		builder.WriteString(fmt.Sprintf(" | active %d, retrying %d", info.InFlight, info.RetryScheduled))
	}

	if pdm.config.ShowETAEstimation && info.EstimatedETA > 0 && info.Status == ProgressStatusRunning {
		builder.WriteString(" | ETA: " + formatDuration(info.EstimatedETA))
	}

	if info.Status == ProgressStatusCancelled {
		builder.WriteString(" | cancelled")
	}
	return builder.String()
}

func createProgressBar(percentage float64, width int) string {
	if width <= 0 {
		return ""
	}

	filled := min(int((percentage/100.0)*float64(width)), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
