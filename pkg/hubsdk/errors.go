package hubsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ============================================================================
// Sentinel Errors
// ============================================================================

var (
	// ErrAuthExpired matches any 401 that reaches the caller: either no
	// refresh token was stored, the refresh failed, or the retried request
	// was rejected again.
	ErrAuthExpired = errors.New("hubsdk: authentication expired")

	// ErrNetwork matches failures where no HTTP response was received.
	ErrNetwork = errors.New("hubsdk: network failure")

	// ErrInvalidMethod is returned before any I/O for unsupported methods.
	ErrInvalidMethod = errors.New("hubsdk: invalid method")

	// ErrInvalidArgument is returned by typed operations for bad input.
	ErrInvalidArgument = errors.New("hubsdk: invalid argument")

	errRefreshRejected = errors.New("hubsdk: refresh response carried no access token")
)

// ============================================================================
// HTTPError - non-2xx responses
// ============================================================================

// HTTPError is a response with a status outside 2xx.
type HTTPError struct {
	StatusCode int

	// Message is the payload's "detail" string, or a generic status message.
	Message string

	// Data is the decoded payload. Non-JSON bodies arrive as
	// {"detail": "<raw text>"} with Fallback set.
	Data     json.RawMessage
	Fallback bool
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("hubsdk: %s (status %d)", e.Message, e.StatusCode)
}

// Is makes every 401 match ErrAuthExpired.
func (e *HTTPError) Is(target error) bool {
	return target == ErrAuthExpired && e.StatusCode == http.StatusUnauthorized
}

// FieldErrors parses a validation payload of the form
// {"field": ["msg", ...], "non_field_errors": [...]}. Fields whose value is a
// single string are accepted too. "detail" is not a field and is skipped.
func (e *HTTPError) FieldErrors() map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &raw); err != nil {
		return nil
	}

	out := make(map[string][]string, len(raw))
	for field, v := range raw {
		if field == "detail" {
			continue
		}
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			if len(list) > 0 {
				out[field] = list
			}
			continue
		}
		var single string
		if err := json.Unmarshal(v, &single); err == nil && single != "" {
			out[field] = []string{single}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// newHTTPError builds the error for a non-2xx response from its decoded body.
func newHTTPError(status int, body json.RawMessage, fallback bool) *HTTPError {
	return &HTTPError{
		StatusCode: status,
		Message:    detailMessage(body, status),
		Data:       body,
		Fallback:   fallback,
	}
}

func detailMessage(body json.RawMessage, status int) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("API request failed with status: %d", status)
}

// ============================================================================
// NetworkError - no response received
// ============================================================================

// NetworkError wraps a transport failure. Context cancellation surfaces here
// too, so errors.Is(err, context.Canceled) works through Unwrap.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("hubsdk: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes every NetworkError match ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ============================================================================
// Validation Message Helpers
// ============================================================================

// registrationFields are reported first, in form order.
var registrationFields = []string{"username", "email", "password", "non_field_errors"}

// validationMessage folds field errors into one readable line, e.g.
// "username: A user with that username already exists.; password: ...".
func validationMessage(fields map[string][]string, order []string) string {
	seen := make(map[string]bool, len(fields))
	parts := make([]string, 0, len(fields))

	add := func(field string) {
		msgs, ok := fields[field]
		if !ok || seen[field] {
			return
		}
		seen[field] = true
		joined := strings.Join(msgs, " ")
		if field == "non_field_errors" {
			parts = append(parts, joined)
			return
		}
		parts = append(parts, field+": "+joined)
	}

	for _, f := range order {
		add(f)
	}

	rest := make([]string, 0, len(fields))
	for f := range fields {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	for _, f := range rest {
		add(f)
	}

	return strings.Join(parts, "; ")
}
