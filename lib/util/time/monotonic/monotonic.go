package monotonic

import (
	"sync"
	"time"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// MaxOffset bounds the correction a single NTP update may apply.
const MaxOffset = 24 * time.Hour

// Clock is the time source of the tunnel endpoint.
type Clock struct {
	mu      sync.RWMutex
	offset  time.Duration
	stratum uint8
}

// NewClock creates a Clock with zero offset.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current time adjusted by the NTP offset.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return time.Now().Add(offset)
}

// SetOffset replaces the NTP offset. Offsets larger than MaxOffset in
// either direction are ignored.
func (c *Clock) SetOffset(offset time.Duration) {
	if offset > MaxOffset || offset < -MaxOffset {
		log.WithField("offset", offset).Warn("ignoring implausible clock offset")
		return
	}
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}

// Offset returns the current NTP offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Stratum returns the stratum of the last accepted update.
func (c *Clock) Stratum() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stratum
}

// SetNow records that the correct time is now.
func (c *Clock) SetNow(now time.Time, stratum uint8) {
	offset := time.Until(now)
	if offset > MaxOffset || offset < -MaxOffset {
		log.WithField("offset", offset).Warn("ignoring implausible clock update")
		return
	}
	c.mu.Lock()
	c.offset = offset
	c.stratum = stratum
	c.mu.Unlock()
	log.WithField("offset", offset).WithField("stratum", stratum).Debug("clock offset updated")
}
