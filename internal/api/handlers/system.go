package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo returns static host and runtime information
func SystemInfo(c *gin.Context) {
	info := gin.H{
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
		"cpu_count":  runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"timestamp":  time.Now(),
		"uptime":     time.Since(startTime).String(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info["hostname"] = hostInfo.Hostname
		info["platform"] = hostInfo.Platform
		info["platform_version"] = hostInfo.PlatformVersion
		info["kernel_version"] = hostInfo.KernelVersion
		info["host_uptime_seconds"] = hostInfo.Uptime
	}

	c.JSON(http.StatusOK, info)
}

// SystemMetrics returns point-in-time host utilization metrics
func SystemMetrics(c *gin.Context) {
	metrics := gin.H{
		"uptime_seconds":   time.Since(startTime).Seconds(),
		"goroutines_count": runtime.NumGoroutine(),
		"timestamp":        time.Now().Unix(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics["memory_total"] = vm.Total
		metrics["memory_used"] = vm.Used
		metrics["memory_percent"] = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		metrics["load_1"] = avg.Load1
		metrics["load_5"] = avg.Load5
		metrics["load_15"] = avg.Load15
	}

	c.JSON(http.StatusOK, metrics)
}
