package router

import (
	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"
)

// dropLog counts every drop and logs a rate-limited sample of them, one
// limiter per drop reason so a flood of one kind cannot hide the others.
type dropLog struct {
	metrics  *Metrics
	limiters map[string]*rate.Limiter
}

func newDropLog(metrics *Metrics, limit rate.Limit, burst int) *dropLog {
	limiters := make(map[string]*rate.Limiter)
	for _, reason := range []string{"decode_failure", "protocol_violation", "resource_unavailable", "store_rejected", "other"} {
		limiters[reason] = rate.NewLimiter(limit, burst)
	}
	return &dropLog{metrics: metrics, limiters: limiters}
}

// report records err as the reason fields' message was dropped.
func (d *dropLog) report(fields logger.Fields, err error) {
	d.metrics.dropped(err)
	reason := dropReason(err)
	if !d.limiters[reason].Allow() {
		return
	}
	fields["reason"] = reason
	log.WithFields(fields).WithError(err).Warn("dropping message at tunnel endpoint")
}
