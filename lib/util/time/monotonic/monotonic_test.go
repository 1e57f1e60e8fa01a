package monotonic

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClock(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Offset())
	assert.Zero(t, c.Stratum())
}

func TestClockNowAppliesOffset(t *testing.T) {
	c := NewClock()
	c.SetOffset(5 * time.Second)

	before := time.Now().Add(5 * time.Second)
	now := c.Now()
	after := time.Now().Add(5 * time.Second)

	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}

func TestClockSetOffsetRejectsImplausible(t *testing.T) {
	c := NewClock()
	c.SetOffset(-500 * time.Millisecond)
	assert.Equal(t, -500*time.Millisecond, c.Offset())

	c.SetOffset(MaxOffset + time.Second)
	assert.Equal(t, -500*time.Millisecond, c.Offset())
}

func TestClockSetNow(t *testing.T) {
	c := NewClock()
	c.SetNow(time.Now().Add(time.Minute), 2)

	assert.InDelta(t, float64(time.Minute), float64(c.Offset()), float64(time.Second))
	assert.Equal(t, uint8(2), c.Stratum())

	c.SetNow(time.Now().Add(48*time.Hour), 1)
	assert.Equal(t, uint8(2), c.Stratum(), "implausible update ignored")
}

func TestClockConcurrentAccess(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.SetOffset(time.Duration(i) * time.Millisecond)
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	wg.Wait()
	assert.Less(t, c.Offset(), 8*time.Millisecond)
}
