package rslimiter

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceUsage represents current resource usage of the process and the host
type ResourceUsage struct {
	AllocMB              int64   // Heap allocated by the Go runtime
	SysMB                int64   // Memory obtained from the OS by the Go runtime
	RSSMB                int64   // Resident set size of the process, includes the browser driver
	Goroutines           int
	GCCount              int64
	SystemMemUsedMB      int64
	SystemMemTotalMB     int64
	SystemMemUsedPercent float64
	CPUUsagePercent      float64
}

// ProcessMB is the memory figure compared against the process limit.
func (u ResourceUsage) ProcessMB() int64 {
	if u.RSSMB > 0 {
		return u.RSSMB
	}
	return u.AllocMB
}

// memoryUsage samples memory figures only. It never blocks.
func memoryUsage() ResourceUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := ResourceUsage{
		AllocMB:    int64(m.Alloc / 1024 / 1024),
		SysMB:      int64(m.Sys / 1024 / 1024),
		Goroutines: runtime.NumGoroutine(),
		GCCount:    int64(m.NumGC),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			usage.RSSMB = int64(info.RSS / 1024 / 1024)
		}
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemUsedMB = int64(vmStat.Used / 1024 / 1024)
		usage.SystemMemTotalMB = int64(vmStat.Total / 1024 / 1024)
		usage.SystemMemUsedPercent = vmStat.UsedPercent
	}

	return usage
}

// GetResourceUsage returns current resource usage statistics, sampling CPU for 100ms
func GetResourceUsage() ResourceUsage {
	usage := memoryUsage()

	if cpuPercents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		usage.CPUUsagePercent = cpuPercents[0]
	}

	return usage
}
