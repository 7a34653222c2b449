package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(start time.Time) (*QueryCache, *time.Time) {
	now := start
	q := New()
	q.now = func() time.Time { return now }
	return q, &now
}

func TestQueryCache_SetAndGet(t *testing.T) {
	q, _ := newTestCache(time.Now())

	q.Set("vm:list", "vm-data")

	val, found := q.Get("vm:list")
	assert.True(t, found)
	assert.Equal(t, "vm-data", val)

	_, found = q.Get("switch:list")
	assert.False(t, found)
}

func TestQueryCache_ExpiresOnChannelTTL(t *testing.T) {
	q, now := newTestCache(time.Now())

	q.Set("vm:list", "vm-data")     // 2s TTL
	q.Set("host:info", "host-data") // 1m TTL

	*now = now.Add(3 * time.Second)

	_, found := q.Get("vm:list")
	assert.False(t, found)

	_, found = q.Get("host:info")
	assert.True(t, found)
}

func TestQueryCache_UncacheableChannelIgnored(t *testing.T) {
	q, _ := newTestCache(time.Now())

	q.Set("vm:start", "should-not-cache")
	q.Set("powershell:run", "should-not-cache")

	_, found := q.Get("vm:start")
	assert.False(t, found)
	_, found = q.Get("powershell:run")
	assert.False(t, found)
}

func TestQueryCache_Invalidate(t *testing.T) {
	q, _ := newTestCache(time.Now())

	q.Set("vm:list", "vm-data")
	q.Set("switch:list", "switch-data")
	q.Set("host:info", "host-data")

	q.Invalidate("vm:list", "switch:list")

	_, found := q.Get("vm:list")
	assert.False(t, found)
	_, found = q.Get("switch:list")
	assert.False(t, found)
	_, found = q.Get("host:info")
	assert.True(t, found)
}

func TestQueryCache_Clear(t *testing.T) {
	q, _ := newTestCache(time.Now())

	q.Set("vm:list", "vm-data")
	q.Set("host:metrics", "metrics-data")
	q.Clear()

	_, found := q.Get("vm:list")
	assert.False(t, found)
	_, found = q.Get("host:metrics")
	assert.False(t, found)
}

func TestCacheable(t *testing.T) {
	assert.True(t, Cacheable("vm:list"))
	assert.True(t, Cacheable("host:metrics"))
	assert.False(t, Cacheable("vm:start"))
	assert.False(t, Cacheable("vm:delete"))
	assert.False(t, Cacheable("powershell:run"))
}

func TestQueryCache_ConcurrentAccess(t *testing.T) {
	q, _ := newTestCache(time.Now())

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			q.Set("vm:list", i)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			q.Get("vm:list")
		}
		done <- true
	}()

	<-done
	<-done
}
