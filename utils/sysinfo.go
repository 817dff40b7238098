package utils

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is a host snapshot. Fields that could not be read stay zero.
type SystemInfo struct {
	OS            string
	KernelVersion string
	GoVersion     string
	CPUCount      int
	CPUPercent    float64
	MemUsedMB     uint64
	MemTotalMB    uint64
	MemPercent    float64
	Goroutines    int
}

// CollectSystemInfo samples CPU usage over sample. A zero sample compares
// against the previous call.
func CollectSystemInfo(sample time.Duration) SystemInfo {
	info := SystemInfo{
		OS:         runtime.GOOS,
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}
	if h, err := host.Info(); err == nil {
		info.OS = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
		info.KernelVersion = h.KernelVersion
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPUCount = n
	}
	if pct, err := cpu.Percent(sample, false); err == nil && len(pct) > 0 {
		info.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemUsedMB = vm.Used / 1024 / 1024
		info.MemTotalMB = vm.Total / 1024 / 1024
		info.MemPercent = vm.UsedPercent
	}
	return info
}

// FileSizeMB returns the size of path in megabytes, or 0 if it cannot be read.
func FileSizeMB(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size() / 1024 / 1024
}
