package system

import (
	"context"
	"fmt"
	"time"
)

// Alert is pushed on the host:alert channel when a resource crosses
// its threshold.
type Alert struct {
	Severity string  `json:"severity"`
	Resource string  `json:"resource"`
	Message  string  `json:"message"`
	Percent  float64 `json:"percent"`
}

const (
	defaultInterval = 30 * time.Second
	defaultCooldown = 5 * time.Minute

	memHighPercent  = 90.0
	diskHighPercent = 90.0
)

// Monitor samples host metrics on an interval and publishes alerts for
// sustained high memory or disk usage. A per-resource cooldown keeps a
// stuck resource from flooding the event stream.
type Monitor struct {
	sample   func() (*HostMetrics, error)
	publish  func(channel string, payload any)
	interval time.Duration
	cooldown time.Duration
	lastSent map[string]time.Time
}

// NewMonitor creates a monitor over the collector. publish may be nil.
func NewMonitor(c *Collector, publish func(string, any)) *Monitor {
	if publish == nil {
		publish = func(string, any) {}
	}
	return &Monitor{
		sample:   c.Metrics,
		publish:  publish,
		interval: defaultInterval,
		cooldown: defaultCooldown,
		lastSent: make(map[string]time.Time),
	}
}

// Run samples until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(time.Now())
		}
	}
}

func (m *Monitor) check(now time.Time) {
	metrics, err := m.sample()
	if err != nil {
		return
	}

	if metrics.MemPercent >= memHighPercent {
		m.send(now, Alert{
			Severity: "warning",
			Resource: "memory",
			Message:  fmt.Sprintf("host memory at %.0f%%", metrics.MemPercent),
			Percent:  metrics.MemPercent,
		})
	}
	if metrics.DiskPercent >= diskHighPercent {
		m.send(now, Alert{
			Severity: "warning",
			Resource: "disk",
			Message:  fmt.Sprintf("host disk at %.0f%%", metrics.DiskPercent),
			Percent:  metrics.DiskPercent,
		})
	}
}

func (m *Monitor) send(now time.Time, alert Alert) {
	if last, ok := m.lastSent[alert.Resource]; ok && now.Sub(last) < m.cooldown {
		return
	}
	m.lastSent[alert.Resource] = now
	m.publish("host:alert", alert)
}
