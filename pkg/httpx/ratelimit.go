package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/frenchtutorhub/hub/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Enabled reports whether the config describes an actual limit.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// ClientLimit is the default outbound budget per API host. The backend
// throttles anonymous users at 100/min, so stay just under it.
// Override with: RATELIMIT_CLIENT_REQUESTS, RATELIMIT_CLIENT_WINDOW_SEC, RATELIMIT_CLIENT_BURST
var ClientLimit = RateLimitConfig{
	RequestsPerWindow: 90,
	Window:            time.Minute,
	Burst:             10,
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_CLIENT_REQUESTS, RATELIMIT_CLIENT_WINDOW_SEC, RATELIMIT_CLIENT_BURST
// Missing, malformed or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		config.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		config.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		config.Burst = n
	}

	return config
}

func positiveEnvInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// hostLimiter keeps one token bucket per destination host.
type hostLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func (hl *hostLimiter) get(host string) *rate.Limiter {
	if l, ok := hl.limiters.Load(host); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := hl.limiters.LoadOrStore(host, rate.NewLimiter(hl.rate, hl.burst))
	return actual.(*rate.Limiter)
}

// RateLimitTransport delays outbound requests so each host sees at most
// config's rate. Waiting honours the request context; a cancelled wait fails
// the request without sending it. A disabled config returns base unchanged.
func RateLimitTransport(config RateLimitConfig) func(http.RoundTripper) http.RoundTripper {
	return func(base http.RoundTripper) http.RoundTripper {
		if !config.Enabled() {
			return base
		}

		burst := max(config.Burst, 1)
		hl := &hostLimiter{rate: config.limit(), burst: burst}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			limiter := hl.get(req.URL.Host)

			reservation := limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				slogx.FromContext(req.Context()).Debug("rate limit: delaying request",
					"host", req.URL.Host,
					"delay_ms", delay.Milliseconds(),
				)

				timer := time.NewTimer(delay)
				select {
				case <-req.Context().Done():
					timer.Stop()
					reservation.Cancel()
					return nil, fmt.Errorf("rate limit wait: %w", req.Context().Err())
				case <-timer.C:
				}
			}

			return base.RoundTrip(req)
		})
	}
}
