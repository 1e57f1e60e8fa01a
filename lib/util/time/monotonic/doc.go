// Package monotonic provides the router clock.
//
// Clock.Now is time.Now shifted by an offset learned from NTP, so it keeps
// Go's monotonic reading and durations measured with it are immune to wall
// clock jumps. Clock implements sntp.UpdateListener and can be registered
// with an sntp.Sampler directly.
package monotonic
