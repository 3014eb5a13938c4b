package httpx

import (
	"net/http"

	"github.com/frenchtutorhub/hub/pkg/idx"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// ChainTransport wraps base with each wrapper in order, so the first wrapper
// is the outermost and sees the request first.
func ChainTransport(base http.RoundTripper, wrappers ...func(http.RoundTripper) http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(wrappers) - 1; i >= 0; i-- {
		base = wrappers[i](base)
	}
	return base
}

// RequestIDTransport stamps X-Request-ID on requests that lack one.
func RequestIDTransport(base http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get(HeaderRequestID) != "" {
			return base.RoundTrip(req)
		}

		// RoundTrippers must not modify the caller's request.
		clone := req.Clone(req.Context())
		clone.Header.Set(HeaderRequestID, idx.New().String())
		return base.RoundTrip(clone)
	})
}

// UserAgentTransport sets User-Agent when the request has none.
func UserAgentTransport(ua string) func(http.RoundTripper) http.RoundTripper {
	return func(base http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if ua == "" || req.Header.Get("User-Agent") != "" {
				return base.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set("User-Agent", ua)
			return base.RoundTrip(clone)
		})
	}
}
