package progress

import "time"

// ProgressStatus is the state of the tracked run.
type ProgressStatus string

const (
	ProgressStatusIdle      ProgressStatus = "IDLE"
	ProgressStatusRunning   ProgressStatus = "RUNNING"
	ProgressStatusComplete  ProgressStatus = "COMPLETE"
	ProgressStatusCancelled ProgressStatus = "CANCELLED"
)

// ProgressInfo is a snapshot of a run's progress. Current counts terminal targets.
type ProgressInfo struct {
	Status         ProgressStatus `json:"status"`
	Current        int64          `json:"current"`
	Total          int64          `json:"total"`
	Pending        int64          `json:"pending"`
	InFlight       int64          `json:"in_flight"`
	RetryScheduled int64          `json:"retry_scheduled"`
	Succeeded      int64          `json:"succeeded"`
	Failed         int64          `json:"failed"`
	Skipped        int64          `json:"skipped"`
	Retries        int64          `json:"retries"`
	StartTime      time.Time      `json:"start_time"`
	LastUpdateTime time.Time      `json:"last_update_time"`
	EstimatedETA   time.Duration  `json:"estimated_eta"`
}

// UpdateETA extrapolates the remaining time from the completion rate so far.
func (pi *ProgressInfo) UpdateETA(now time.Time) {
	if pi.Total <= 0 || pi.Current <= 0 || pi.Status != ProgressStatusRunning {
		pi.EstimatedETA = 0
		return
	}

	elapsed := now.Sub(pi.StartTime)
	if elapsed <= 0 {
		pi.EstimatedETA = 0
		return
	}

	rate := float64(pi.Current) / elapsed.Seconds()
	remaining := float64(pi.Total - pi.Current)
	if rate <= 0 || remaining <= 0 {
		pi.EstimatedETA = 0
		return
	}

	pi.EstimatedETA = time.Duration(remaining / rate * float64(time.Second))
}

// GetPercentage returns the completed share, capped at 100.
func (pi *ProgressInfo) GetPercentage() float64 {
	if pi.Total <= 0 {
		return 0.0
	}
	percentage := float64(pi.Current) * 100 / float64(pi.Total)
	if percentage > 100 {
		return 100.0
	}
	return percentage
}
