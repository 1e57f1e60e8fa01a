// Package sntp estimates the offset of the local clock from NTP servers.
//
// A Sampler queries a fixed server list, discards responses that fail
// validation or disagree with the first accepted sample, and reports the
// median offset to its UpdateListeners.
package sntp
