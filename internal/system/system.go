// Package system collects host information for the dashboard's host
// panel. Read-only; nothing here touches the privileged executor.
package system

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostInfo identifies the machine running the bridge.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelArch      string `json:"kernel_arch"`
	Uptime          uint64 `json:"uptime"`
	UptimeHuman     string `json:"uptime_human"`
}

// HostMetrics is a point-in-time sample for the dashboard.
type HostMetrics struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	CPUCores    int       `json:"cpu_cores"`
	MemTotal    uint64    `json:"mem_total"`
	MemUsed     uint64    `json:"mem_used"`
	MemPercent  float64   `json:"mem_percent"`
	DiskTotal   uint64    `json:"disk_total"`
	DiskUsed    uint64    `json:"disk_used"`
	DiskPercent float64   `json:"disk_percent"`
}

// Collector samples host state.
type Collector struct {
	diskPath string
}

// NewCollector creates a collector; diskPath defaults to the root
// filesystem.
func NewCollector(diskPath string) *Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Collector{diskPath: diskPath}
}

// Info returns host identification.
func (c *Collector) Info() (*HostInfo, error) {
	info, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}

	return &HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelArch:      info.KernelArch,
		Uptime:          info.Uptime,
		UptimeHuman:     formatUptime(info.Uptime),
	}, nil
}

// Metrics returns a CPU/memory/disk sample.
func (c *Collector) Metrics() (*HostMetrics, error) {
	m := &HostMetrics{Timestamp: time.Now().UTC()}

	counts, err := cpu.Counts(true)
	if err == nil {
		m.CPUCores = counts
	}

	percent, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		return nil, fmt.Errorf("failed to sample cpu: %w", err)
	}
	if len(percent) > 0 {
		m.CPUPercent = percent[0]
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to sample memory: %w", err)
	}
	m.MemTotal = vmem.Total
	m.MemUsed = vmem.Used
	m.MemPercent = vmem.UsedPercent

	usage, err := disk.Usage(c.diskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to sample disk: %w", err)
	}
	m.DiskTotal = usage.Total
	m.DiskUsed = usage.Used
	m.DiskPercent = usage.UsedPercent

	return m, nil
}

func formatUptime(seconds uint64) string {
	duration := time.Duration(seconds) * time.Second

	days := int(duration.Hours() / 24)
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
