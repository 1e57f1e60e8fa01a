package router

import "errors"

// Drop reasons. Every failure inside the distributor wraps exactly one of
// these, is logged, and ends processing of that message or clove only.
var (
	// ErrDecodeFailure covers malformed or undecryptable garlic bundles and
	// nesting beyond the configured depth.
	ErrDecodeFailure = errors.New("router: garlic decode failure")
	// ErrProtocolViolation covers wrong payload types, destination
	// mismatches, missing instruction fields and unknown delivery modes.
	ErrProtocolViolation = errors.New("router: protocol violation")
	// ErrResourceUnavailable is returned when no outbound tunnel can carry a
	// remote delivery.
	ErrResourceUnavailable = errors.New("router: resource unavailable")
	// ErrStoreRejected covers DatabaseStore content the netDb refused.
	ErrStoreRejected = errors.New("router: database store rejected")
)

// dropReason maps an error to its metric label.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrDecodeFailure):
		return "decode_failure"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, ErrStoreRejected):
		return "store_rejected"
	default:
		return "other"
	}
}
