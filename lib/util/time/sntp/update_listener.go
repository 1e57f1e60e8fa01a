package sntp

import "time"

// UpdateListener receives corrected time from a Sampler.
type UpdateListener interface {
	SetNow(now time.Time, stratum uint8)
}
