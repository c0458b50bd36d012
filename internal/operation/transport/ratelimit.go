package transport

import (
	"golang.org/x/time/rate"
)

// NewRateLimiter returns a token bucket limiter allowing requestsPerSecond
// with the given burst. A non-positive rate disables limiting and returns nil.
func NewRateLimiter(requestsPerSecond float64, burst int) RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
