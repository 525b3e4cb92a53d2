package rslimiter

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/aleister1102/pendoc/internal/config"
	"github.com/rs/zerolog"
)

// ResourceLimiter holds capture attempts back while memory is under pressure. It satisfies
// scheduler.AdmissionGate.
type ResourceLimiter struct {
	config        config.ResourceLimiterConfig
	logger        zerolog.Logger
	checkInterval time.Duration
	maxWait       time.Duration
	sample        func() ResourceUsage

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewResourceLimiter creates a new resource limiter
func NewResourceLimiter(cfg config.ResourceLimiterConfig, logger zerolog.Logger) *ResourceLimiter {
	defaults := config.NewDefaultResourceLimiterConfig()
	if cfg.MaxMemoryMB <= 0 {
		cfg.MaxMemoryMB = defaults.MaxMemoryMB
	}
	if cfg.SystemMemThreshold <= 0 {
		cfg.SystemMemThreshold = defaults.SystemMemThreshold
	}
	if cfg.CheckIntervalSecs <= 0 {
		cfg.CheckIntervalSecs = defaults.CheckIntervalSecs
	}
	if cfg.MaxWaitSecs <= 0 {
		cfg.MaxWaitSecs = defaults.MaxWaitSecs
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ResourceLimiter{
		config:        cfg,
		logger:        logger.With().Str("component", "ResourceLimiter").Logger(),
		checkInterval: time.Duration(cfg.CheckIntervalSecs) * time.Second,
		maxWait:       time.Duration(cfg.MaxWaitSecs) * time.Second,
		sample:        memoryUsage,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins periodic resource logging
func (rl *ResourceLimiter) Start() {
	rl.mu.Lock()
	if rl.isRunning || !rl.config.Enabled {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = true
	rl.mu.Unlock()

	rl.wg.Add(1)
	go rl.monitorResources()

	rl.logger.Info().
		Int64("max_memory_mb", rl.config.MaxMemoryMB).
		Float64("system_mem_threshold", rl.config.SystemMemThreshold).
		Dur("check_interval", rl.checkInterval).
		Dur("max_wait", rl.maxWait).
		Msg("Resource limiter started")
}

// Stop stops the resource monitor
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	if !rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = false
	rl.mu.Unlock()

	rl.cancel()
	rl.wg.Wait()
	rl.logger.Info().Msg("Resource limiter stopped")
}

// Admit blocks while memory is over the configured limits. After MaxWaitSecs the attempt is
// admitted anyway so a saturated host slows the run down instead of stalling it. The only
// error is ctx's.
func (rl *ResourceLimiter) Admit(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}

	usage := rl.sample()
	reason := rl.pressure(usage)
	if reason == "" {
		return nil
	}

	rl.logger.Warn().
		Str("reason", reason).
		Int64("process_mb", usage.ProcessMB()).
		Float64("system_mem_percent", usage.SystemMemUsedPercent).
		Msg("Memory pressure, holding capture attempt")
	rl.ForceGC()

	deadline := time.NewTimer(rl.maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(rl.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			rl.logger.Warn().Dur("waited", rl.maxWait).Msg("Memory still under pressure, admitting attempt")
			return nil
		case <-ticker.C:
			if rl.pressure(rl.sample()) == "" {
				return nil
			}
		}
	}
}

// pressure returns why usage is over the limits, or "" when it is not.
func (rl *ResourceLimiter) pressure(usage ResourceUsage) string {
	if usage.ProcessMB() > rl.config.MaxMemoryMB {
		return "process memory limit exceeded"
	}
	if usage.SystemMemUsedPercent/100.0 > rl.config.SystemMemThreshold {
		return "system memory threshold exceeded"
	}
	return ""
}

// ForceGC forces garbage collection and logs the results
func (rl *ResourceLimiter) ForceGC() {
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)
	before := m1.Alloc / 1024 / 1024

	runtime.GC()

	runtime.ReadMemStats(&m2)
	after := m2.Alloc / 1024 / 1024

	rl.logger.Debug().
		Uint64("before_mb", before).
		Uint64("after_mb", after).
		Msg("Forced garbage collection completed")
}

func (rl *ResourceLimiter) monitorResources() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			rl.logResourceUsage(GetResourceUsage())
		}
	}
}

func (rl *ResourceLimiter) logResourceUsage(usage ResourceUsage) {
	if reason := rl.pressure(usage); reason != "" {
		rl.logger.Warn().
			Str("reason", reason).
			Int64("process_mb", usage.ProcessMB()).
			Int64("limit_mb", rl.config.MaxMemoryMB).
			Float64("system_mem_percent", usage.SystemMemUsedPercent).
			Msg("Memory usage above limit")
		return
	}

	rl.logger.Debug().
		Int64("alloc_mb", usage.AllocMB).
		Int64("rss_mb", usage.RSSMB).
		Int("goroutines", usage.Goroutines).
		Int64("gc_count", usage.GCCount).
		Float64("system_mem_percent", usage.SystemMemUsedPercent).
		Float64("cpu_percent", usage.CPUUsagePercent).
		Msg("Current resource usage")
}
