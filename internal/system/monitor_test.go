package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(metrics *HostMetrics) (*Monitor, *[]Alert) {
	var published []Alert
	m := &Monitor{
		sample:   func() (*HostMetrics, error) { return metrics, nil },
		publish: func(channel string, payload any) {
			if alert, ok := payload.(Alert); ok && channel == "host:alert" {
				published = append(published, alert)
			}
		},
		interval: time.Second,
		cooldown: 5 * time.Minute,
		lastSent: make(map[string]time.Time),
	}
	return m, &published
}

func TestMonitor_AlertsOnHighUsage(t *testing.T) {
	m, published := newTestMonitor(&HostMetrics{MemPercent: 95, DiskPercent: 40})

	m.check(time.Now())

	require.Len(t, *published, 1)
	assert.Equal(t, "memory", (*published)[0].Resource)
	assert.Equal(t, "warning", (*published)[0].Severity)
	assert.Equal(t, 95.0, (*published)[0].Percent)
}

func TestMonitor_QuietBelowThreshold(t *testing.T) {
	m, published := newTestMonitor(&HostMetrics{MemPercent: 50, DiskPercent: 50})

	m.check(time.Now())

	assert.Empty(t, *published)
}

func TestMonitor_CooldownSuppressesRepeats(t *testing.T) {
	m, published := newTestMonitor(&HostMetrics{MemPercent: 95})

	now := time.Now()
	m.check(now)
	m.check(now.Add(time.Minute))
	require.Len(t, *published, 1)

	// A fresh alert goes out once the cooldown elapses
	m.check(now.Add(6 * time.Minute))
	assert.Len(t, *published, 2)
}

func TestMonitor_IndependentResources(t *testing.T) {
	m, published := newTestMonitor(&HostMetrics{MemPercent: 95, DiskPercent: 95})

	m.check(time.Now())

	require.Len(t, *published, 2)
	resources := []string{(*published)[0].Resource, (*published)[1].Resource}
	assert.ElementsMatch(t, []string{"memory", "disk"}, resources)
}
