package i2np

import (
	"time"

	"github.com/samber/oops"
)

// ExpirationValidator checks message and clove expirations against a
// clock, allowing a tolerance for skew between routers.
type ExpirationValidator struct {
	// toleranceSeconds allows for clock skew between routers.
	// Messages that expired within this window are still accepted.
	toleranceSeconds int64

	// timeSource allows injection of time. If nil, uses time.Now().
	timeSource func() time.Time
}

// NewExpirationValidator creates a new validator with default settings.
// Default tolerance is 5 minutes to allow for reasonable clock skew.
func NewExpirationValidator() *ExpirationValidator {
	return &ExpirationValidator{
		toleranceSeconds: DefaultExpirationTolerance,
	}
}

// WithTolerance sets the clock skew tolerance in seconds.
// Returns the validator for method chaining.
func (v *ExpirationValidator) WithTolerance(seconds int64) *ExpirationValidator {
	if seconds < 0 {
		seconds = 0
	}
	v.toleranceSeconds = seconds
	return v
}

// WithTimeSource sets the clock used for comparisons.
// Returns the validator for method chaining.
func (v *ExpirationValidator) WithTimeSource(source func() time.Time) *ExpirationValidator {
	v.timeSource = source
	return v
}

func (v *ExpirationValidator) now() time.Time {
	if v.timeSource != nil {
		return v.timeSource()
	}
	return time.Now()
}

// IsExpired checks if the given expiration time is in the past,
// accounting for the configured tolerance.
func (v *ExpirationValidator) IsExpired(expiration time.Time) bool {
	adjusted := expiration.Add(time.Duration(v.toleranceSeconds) * time.Second)
	return v.now().After(adjusted)
}

// ValidateExpiration returns ERR_I2NP_MESSAGE_EXPIRED (wrapped) when
// expiration has passed.
func (v *ExpirationValidator) ValidateExpiration(expiration time.Time) error {
	if v.IsExpired(expiration) {
		now := v.now()
		return oops.Wrapf(ERR_I2NP_MESSAGE_EXPIRED,
			"expired %v ago (expiration: %v, now: %v, tolerance: %ds)",
			now.Sub(expiration).Round(time.Second), expiration.UTC(), now.UTC(), v.toleranceSeconds)
	}
	return nil
}
