// internal/api/v2/system.go
package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/llm"
)

// Health status values
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status         string         `json:"status"`
	Version        string         `json:"version,omitempty"`
	BuildDate      string         `json:"build_date,omitempty"`
	Timestamp      string         `json:"timestamp"`
	Uptime         string         `json:"uptime"`
	UptimeSeconds  float64        `json:"uptime_seconds"`
	GeminiAPI      string         `json:"gemini_api"`
	DatabaseStatus string         `json:"database_status"`
	DatabaseError  string         `json:"database_error,omitempty"`
	Pipeline       string         `json:"pipeline"`
	System         ResourceInfo   `json:"system"`
	Runtime        map[string]any `json:"runtime"`
}

// ResourceInfo represents host resource usage.
type ResourceInfo struct {
	CPUUsage    float64 `json:"cpu_usage_percent"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	DiskTotal   uint64  `json:"disk_total"`
	DiskFree    uint64  `json:"disk_free"`
	DiskUsage   float64 `json:"disk_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
}

// database status values
const (
	dbConnected     = "connected"
	dbDisconnected  = "disconnected"
	dbNotConfigured = "not_configured"
)

// HealthCheck handles GET /api/health. Host statistics are best effort and
// left zero when unavailable.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	resp := HealthResponse{
		Status:         HealthHealthy,
		Timestamp:      time.Now().Format(time.RFC3339),
		Uptime:         uptime.Round(time.Second).String(),
		UptimeSeconds:  uptime.Seconds(),
		GeminiAPI:      llm.StatusOf(c.Completer),
		DatabaseStatus: dbNotConfigured,
		System:         resourceInfo(),
		Runtime: map[string]any{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"num_cpu":    runtime.NumCPU(),
		},
	}
	if c.Settings != nil {
		resp.Version = c.Settings.Version
		resp.BuildDate = c.Settings.BuildDate
	}
	if c.Pipeline != nil {
		resp.Pipeline = string(c.Pipeline.Status().State)
	}

	if c.DS != nil {
		resp.DatabaseStatus = dbConnected
		if _, err := c.DS.GetTranscriptions(ctx.Request().Context(), 1, 0, ""); err != nil {
			resp.DatabaseStatus = dbDisconnected
			resp.DatabaseError = err.Error()
			resp.Status = HealthDegraded
		}
	}
	if resp.GeminiAPI == llm.StatusError {
		resp.Status = HealthDegraded
	}

	return ctx.JSON(http.StatusOK, resp)
}

func resourceInfo() ResourceInfo {
	var info ResourceInfo
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
		info.MemoryUsage = vm.UsedPercent
	}
	// zero interval compares against the previous call instead of sleeping
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		info.CPUUsage = pct[0]
	}
	if wd, err := os.Getwd(); err == nil {
		if usage, err := disk.Usage(wd); err == nil {
			info.DiskTotal = usage.Total
			info.DiskFree = usage.Free
			info.DiskUsage = usage.UsedPercent
		}
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pids fit in int32
		if m, err := proc.MemoryInfo(); err == nil && m != nil {
			info.ProcessMem = float64(m.RSS) / 1024 / 1024
		}
	}
	return info
}

// GetAudioDevices handles GET /api/audio/devices
func (c *Controller) GetAudioDevices(ctx echo.Context) error {
	devices, err := audio.ListDevices()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list audio devices", http.StatusServiceUnavailable)
	}
	return ctx.JSON(http.StatusOK, devices)
}
