package progress

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_New(t *testing.T) {
	p := NewProgress()
	require.NotNil(t, p)
	assert.Equal(t, ProgressStatusIdle, p.Info().Status)
}

func TestProgress_Start(t *testing.T) {
	p := NewProgress()
	p.Start(4)

	info := p.Info()
	assert.Equal(t, ProgressStatusRunning, info.Status)
	assert.Equal(t, int64(4), info.Total)
	assert.Equal(t, int64(4), info.Pending)
	assert.Zero(t, info.Current)
	assert.NotZero(t, info.StartTime)
}

type flakyCapturer struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
}

func (f *flakyCapturer) Capture(_ context.Context, target models.CanonicalTarget, _ models.Viewport, _ time.Duration) (*models.CaptureSuccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[target.Host]++
	if f.calls[target.Host] <= f.failures[target.Host] {
		return nil, models.NewCaptureError(models.CaptureErrConnectionRefused, "net::ERR_CONNECTION_REFUSED")
	}
	return &models.CaptureSuccess{HTTPStatus: 200}, nil
}

type discardSink struct{}

func (discardSink) Append(models.TargetResult) error { return nil }

func TestProgress_ObserveSchedulerRun(t *testing.T) {
	capturer := &flakyCapturer{
		failures: map[string]int{"a.example": 2, "b.example": 5},
		calls:    make(map[string]int),
	}
	targets := []models.CanonicalTarget{
		{Scheme: "https", Host: "a.example", Port: 443, Path: "/"},
		{Scheme: "https", Host: "b.example", Port: 443, Path: "/"},
		{Scheme: "https", Host: "c.example", Port: 443, Path: "/"},
	}
	policy := models.CapturePolicy{
		Timeout:           time.Second,
		MaxRetries:        2,
		RetryDelay:        5 * time.Millisecond,
		ConcurrentWorkers: 2,
	}

	p := NewProgress()
	p.Start(len(targets))
	s := scheduler.NewScheduler(scheduler.Options{OnStateChange: p.Observe}, zerolog.Nop())
	require.NoError(t, s.Run(context.Background(), targets, policy, capturer, discardSink{}))

	info := p.Info()
	assert.Equal(t, int64(3), info.Current)
	assert.Equal(t, int64(2), info.Succeeded)
	assert.Equal(t, int64(1), info.Failed)
	// a retried twice, b retried twice before exhausting
	assert.Equal(t, int64(4), info.Retries)
	assert.Zero(t, info.Pending)
	assert.Zero(t, info.InFlight)
	assert.Zero(t, info.RetryScheduled)
	assert.Equal(t, 100.0, info.GetPercentage())
}

func TestProgress_ObserveCountsStates(t *testing.T) {
	p := NewProgress()
	p.Start(3)

	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateInFlight, Attempt: 1})
	p.Observe(scheduler.StateChange{Key: "b", State: scheduler.StateInFlight, Attempt: 1})

	info := p.Info()
	assert.Equal(t, int64(1), info.Pending)
	assert.Equal(t, int64(2), info.InFlight)

	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateRetryScheduled, Attempt: 1})
	assert.Equal(t, int64(1), p.Info().RetryScheduled)

	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StatePending, Attempt: 1})
	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateInFlight, Attempt: 2})
	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateSucceeded, Attempt: 2})
	p.Observe(scheduler.StateChange{Key: "b", State: scheduler.StateFailed, Attempt: 1})
	p.Observe(scheduler.StateChange{Key: "c", State: scheduler.StateSkipped})

	info = p.Info()
	assert.Equal(t, int64(3), info.Current)
	assert.Equal(t, int64(1), info.Succeeded)
	assert.Equal(t, int64(1), info.Failed)
	assert.Equal(t, int64(1), info.Skipped)
	assert.Equal(t, int64(1), info.Retries)
	assert.Zero(t, info.Pending)
	assert.Zero(t, info.InFlight)
}

func TestProgress_IgnoresTransitionsAfterTerminal(t *testing.T) {
	p := NewProgress()
	p.Start(1)

	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateSucceeded})
	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateSkipped})
	p.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateSucceeded})

	info := p.Info()
	assert.Equal(t, int64(1), info.Current)
	assert.Equal(t, int64(1), info.Succeeded)
	assert.Zero(t, info.Skipped)
}

func TestProgress_Finish(t *testing.T) {
	p := NewProgress()
	p.Start(2)
	p.Finish(true)
	assert.Equal(t, ProgressStatusCancelled, p.Info().Status)

	p.Finish(false)
	assert.Equal(t, ProgressStatusComplete, p.Info().Status)
}

func TestProgressInfo_UpdateETA(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	info := ProgressInfo{Status: ProgressStatusRunning, Current: 10, Total: 30, StartTime: start}

	info.UpdateETA(start.Add(10 * time.Second))
	assert.Equal(t, 20*time.Second, info.EstimatedETA)

	info.Status = ProgressStatusComplete
	info.UpdateETA(start.Add(10 * time.Second))
	assert.Zero(t, info.EstimatedETA)
}

func TestProgressInfo_GetPercentage(t *testing.T) {
	assert.Equal(t, 0.0, (&ProgressInfo{}).GetPercentage())
	assert.Equal(t, 50.0, (&ProgressInfo{Current: 1, Total: 2}).GetPercentage())
	assert.Equal(t, 100.0, (&ProgressInfo{Current: 3, Total: 2}).GetPercentage())
}

func TestProgressDisplayManager_LogsOnStop(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress()
	pdm := NewProgressDisplayManager(p, ProgressDisplayConfig{
		DisplayInterval: time.Hour,
		EnableProgress:  true,
	}, zerolog.New(&buf))

	p.Start(2)
	pdm.Start()
	pdm.Observe(scheduler.StateChange{Key: "a", State: scheduler.StateSucceeded})
	pdm.Stop()

	assert.Contains(t, buf.String(), "(1/2)")
	assert.Contains(t, buf.String(), `"succeeded":1`)

	// second stop is a no-op
	pdm.Stop()
}

func TestProgressDisplayManager_Disabled(t *testing.T) {
	var buf bytes.Buffer
	pdm := NewProgressDisplayManager(NewProgress(), ProgressDisplayConfig{}, zerolog.New(&buf))
	pdm.Start()
	pdm.Stop()
	assert.Empty(t, buf.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "[██████████░░░░░░░░░░]", createProgressBar(50, 20))
	assert.Equal(t, "[████]", createProgressBar(150, 4))
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "3m", formatDuration(3*time.Minute))
	assert.Equal(t, "2.5h", formatDuration(150*time.Minute))
}
