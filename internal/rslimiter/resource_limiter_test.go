package rslimiter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/pendoc/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(sample func() ResourceUsage) *ResourceLimiter {
	cfg := config.NewDefaultResourceLimiterConfig()
	cfg.MaxMemoryMB = 500
	cfg.SystemMemThreshold = 0.8
	rl := NewResourceLimiter(cfg, zerolog.Nop())
	rl.sample = sample
	rl.checkInterval = 5 * time.Millisecond
	rl.maxWait = time.Second
	return rl
}

func TestResourceLimiter_NewAppliesDefaults(t *testing.T) {
	rl := NewResourceLimiter(config.ResourceLimiterConfig{Enabled: true}, zerolog.Nop())
	require.NotNil(t, rl)
	assert.Equal(t, int64(1024), rl.config.MaxMemoryMB)
	assert.Equal(t, 0.9, rl.config.SystemMemThreshold)
	assert.Equal(t, 5*time.Second, rl.checkInterval)
	assert.Equal(t, time.Minute, rl.maxWait)
}

func TestResourceLimiter_StartAndStop(t *testing.T) {
	rl := NewResourceLimiter(config.NewDefaultResourceLimiterConfig(), zerolog.Nop())

	rl.Start()
	assert.True(t, rl.isRunning)

	rl.Stop()
	assert.False(t, rl.isRunning)

	// idempotent
	rl.Stop()
}

func TestResourceLimiter_DisabledNeverRuns(t *testing.T) {
	rl := NewResourceLimiter(config.ResourceLimiterConfig{}, zerolog.Nop())
	rl.sample = func() ResourceUsage {
		t.Fatal("disabled limiter must not sample")
		return ResourceUsage{}
	}

	rl.Start()
	assert.False(t, rl.isRunning)
	assert.NoError(t, rl.Admit(context.Background()))
}

func TestResourceLimiter_AdmitUnderLimit(t *testing.T) {
	rl := newTestLimiter(func() ResourceUsage {
		return ResourceUsage{RSSMB: 100, SystemMemUsedPercent: 40}
	})
	assert.NoError(t, rl.Admit(context.Background()))
}

func TestResourceLimiter_AdmitWaitsForPressureToClear(t *testing.T) {
	var calls atomic.Int32
	rl := newTestLimiter(func() ResourceUsage {
		if calls.Add(1) < 3 {
			return ResourceUsage{RSSMB: 900}
		}
		return ResourceUsage{RSSMB: 100}
	})

	require.NoError(t, rl.Admit(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestResourceLimiter_AdmitGivesUpWaiting(t *testing.T) {
	rl := newTestLimiter(func() ResourceUsage {
		return ResourceUsage{SystemMemUsedPercent: 95}
	})
	rl.maxWait = 30 * time.Millisecond

	start := time.Now()
	assert.NoError(t, rl.Admit(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestResourceLimiter_AdmitCancelled(t *testing.T) {
	rl := newTestLimiter(func() ResourceUsage {
		return ResourceUsage{RSSMB: 900}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	assert.ErrorIs(t, rl.Admit(ctx), context.Canceled)
}

func TestResourceLimiter_Pressure(t *testing.T) {
	rl := newTestLimiter(memoryUsage)

	assert.Empty(t, rl.pressure(ResourceUsage{RSSMB: 100, SystemMemUsedPercent: 50}))
	assert.Equal(t, "process memory limit exceeded", rl.pressure(ResourceUsage{RSSMB: 600}))
	assert.Equal(t, "process memory limit exceeded", rl.pressure(ResourceUsage{AllocMB: 600}))
	assert.Equal(t, "system memory threshold exceeded", rl.pressure(ResourceUsage{SystemMemUsedPercent: 81}))
}

func TestGetResourceUsage(t *testing.T) {
	usage := GetResourceUsage()
	assert.Greater(t, usage.Goroutines, 0)
	assert.GreaterOrEqual(t, usage.AllocMB, int64(0))
	assert.GreaterOrEqual(t, usage.ProcessMB(), int64(0))
}
