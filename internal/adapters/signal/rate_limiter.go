package signal

import "golang.org/x/time/rate"

type limiterConfig struct {
	perSecond float64
	burst     int
}

// newInboundLimiter returns a per-connection token bucket, or nil when limiting is off.
func newInboundLimiter(cfg limiterConfig) *rate.Limiter {
	if cfg.perSecond <= 0 {
		return nil
	}
	burst := cfg.burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.perSecond), burst)
}
