package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Boundary(t *testing.T) {
	l := NewLimiter(5, time.Hour)

	// Exactly max calls within the window succeed.
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(), "call %d", i+1)
	}

	// The max+1-th call is rejected.
	assert.False(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestLimiter_WindowElapses(t *testing.T) {
	l := NewLimiter(2, 50*time.Millisecond)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	time.Sleep(100 * time.Millisecond)

	// Old timestamps aged out of the window.
	assert.True(t, l.Allow())
}

func TestLimiter_Reset(t *testing.T) {
	l := NewLimiter(1, time.Hour)

	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	l.Reset()
	assert.True(t, l.Allow())
}
