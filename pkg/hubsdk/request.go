package hubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Method is an HTTP method accepted by Do.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// Request describes one API call.
type Request struct {
	// Endpoint is the path below the base URL, e.g. "/api/courses/".
	Endpoint string
	Method   Method

	// Body is JSON-encoded for non-GET requests. Nil sends no body.
	Body any

	// Auth attaches the stored access token and enables refresh-and-retry
	// on 401.
	Auth bool

	Query url.Values

	// Header adds extra headers. Content-Type, Accept and Authorization are
	// always set by the client.
	Header http.Header
}

// Response is a 2xx reply. Body is always valid JSON.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage

	// Fallback reports that the server sent non-JSON and Body is
	// {"detail": "<raw text>"}.
	Fallback bool
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("hubsdk: decode response: %w", err)
	}
	return nil
}

// Do executes req. A 401 on an authenticated request with a stored refresh
// token triggers one refresh and, on success, exactly one retry with the new
// access token. Every other failure is returned as is.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if !req.Method.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}

	var token string
	if req.Auth {
		t, err := c.creds.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("hubsdk: read access token: %w", err)
		}
		token = t
	}

	resp, err := c.send(ctx, req, token)
	if err == nil || !req.Auth {
		return resp, err
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		return nil, err
	}

	newToken, ok, rerr := c.refreshAfterUnauthorized(ctx)
	if rerr != nil {
		return nil, rerr
	}
	if !ok {
		return nil, err
	}

	c.stats.retries.Add(1)
	c.log(ctx).Debug("retrying after token refresh",
		"method", string(req.Method),
		"endpoint", req.Endpoint,
	)

	// The retry goes straight to send, so a second 401 is final.
	return c.send(ctx, req, newToken)
}

// send performs a single attempt with the given bearer token ("" for none).
func (c *Client) send(ctx context.Context, req Request, token string) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req, token)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: httpReq.Method, URL: httpReq.URL.String(), Err: err}
	}
	defer httpResp.Body.Close()

	return readResponse(httpResp)
}

func (c *Client) newRequest(ctx context.Context, req Request, token string) (*http.Request, error) {
	target := c.baseURL + req.Endpoint
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if req.Method != MethodGet && req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("hubsdk: encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("hubsdk: build request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Del("Authorization")
	if req.Auth && token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

// readResponse decodes the body per its Content-Type and maps non-2xx
// statuses to *HTTPError.
func readResponse(resp *http.Response) (*Response, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{
			Method: resp.Request.Method,
			URL:    resp.Request.URL.String(),
			Err:    fmt.Errorf("read body: %w", err),
		}
	}

	body, fallback := decodeBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, body, fallback)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Fallback:   fallback,
	}, nil
}

// decodeBody returns the body as JSON. JSON content is used as is (empty
// becomes null); anything else, including malformed JSON, is wrapped as
// {"detail": text}.
func decodeBody(contentType string, raw []byte) (json.RawMessage, bool) {
	if isJSONContentType(contentType) {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			return json.RawMessage("null"), false
		}
		if json.Valid(trimmed) {
			return json.RawMessage(trimmed), false
		}
	}

	wrapped, _ := json.Marshal(map[string]string{"detail": string(raw)})
	return wrapped, true
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(strings.ToLower(ct), "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
