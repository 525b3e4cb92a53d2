package progress

import (
	"sync"
	"time"

	"github.com/aleister1102/pendoc/internal/scheduler"
)

// Progress folds scheduler state changes into per-state counters.
type Progress struct {
	mu     sync.RWMutex
	info   ProgressInfo
	states map[string]scheduler.TargetState
	now    func() time.Time
}

// NewProgress creates an idle Progress.
func NewProgress() *Progress {
	return &Progress{
		info:   ProgressInfo{Status: ProgressStatusIdle},
		states: make(map[string]scheduler.TargetState),
		now:    time.Now,
	}
}

// Info returns a copy of the ProgressInfo.
func (p *Progress) Info() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info
}

// Start resets the counters for a run of total targets, all pending.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.states = make(map[string]scheduler.TargetState, total)
	p.info = ProgressInfo{
		Status:         ProgressStatusRunning,
		Total:          int64(total),
		Pending:        int64(total),
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Observe applies one transition. It is safe to pass as scheduler.Options.OnStateChange.
func (p *Progress) Observe(change scheduler.StateChange) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, seen := p.states[change.Key]
	if !seen {
		prev = scheduler.StatePending
	}
	if prev.Terminal() || prev == change.State {
		return
	}
	p.states[change.Key] = change.State

	p.adjust(prev, -1)
	p.adjust(change.State, 1)
	// a retry leaves the wait by being queued again
	if prev == scheduler.StateRetryScheduled && (change.State == scheduler.StatePending || change.State == scheduler.StateInFlight) {
		p.info.Retries++
	}

	now := p.now()
	p.info.LastUpdateTime = now
	p.info.UpdateETA(now)
}

// Finish marks the run complete or cancelled.
func (p *Progress) Finish(cancelled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.info.Status = ProgressStatusComplete
	if cancelled {
		p.info.Status = ProgressStatusCancelled
	}
	p.info.LastUpdateTime = p.now()
	p.info.EstimatedETA = 0
}

func (p *Progress) adjust(state scheduler.TargetState, delta int64) {
	switch state {
	case scheduler.StatePending:
		p.info.Pending += delta
	case scheduler.StateInFlight:
		p.info.InFlight += delta
	case scheduler.StateRetryScheduled:
		p.info.RetryScheduled += delta
	case scheduler.StateSucceeded:
		p.info.Succeeded += delta
		p.info.Current += delta
	case scheduler.StateFailed:
		p.info.Failed += delta
		p.info.Current += delta
	case scheduler.StateSkipped:
		p.info.Skipped += delta
		p.info.Current += delta
	}
}
