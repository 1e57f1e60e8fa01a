package sntp

import (
	"time"

	"github.com/beevik/ntp"
	"github.com/samber/oops"
)

const (
	maxRTT            = 2 * time.Second
	maxClockOffset    = 10 * time.Minute
	maxRootDispersion = 1 * time.Second
	maxRootDelay      = 1 * time.Second
)

// validateResponse applies the library checks plus tighter bounds on
// round trip, offset and root metrics.
func validateResponse(response *ntp.Response) error {
	if err := response.Validate(); err != nil {
		return oops.Wrapf(err, "invalid NTP response")
	}
	switch {
	case response.RTT < 0 || response.RTT > maxRTT:
		return oops.Errorf("round-trip delay %v out of bounds", response.RTT)
	case absDuration(response.ClockOffset) > maxClockOffset:
		return oops.Errorf("clock offset %v out of bounds", response.ClockOffset)
	case response.RootDispersion > maxRootDispersion:
		return oops.Errorf("root dispersion %v too high", response.RootDispersion)
	case response.RootDelay > maxRootDelay:
		return oops.Errorf("root delay %v too high", response.RootDelay)
	}
	return nil
}
