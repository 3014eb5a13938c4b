package hubsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/stretchr/testify/require"
)

func TestDo_PublicRequestNeverSendsToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, hubsdk.PathCourses, r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))

		body, _ := io.ReadAll(r.Body)
		require.Empty(t, body)

		writeJSON(w, http.StatusOK, `[{"id":1,"title":"French for Beginners"}]`)
	}))

	st := newStore(t, srv.URL)
	require.NoError(t, st.SetTokens(ctx, "stored-access", "stored-refresh"))
	c := newClient(t, srv.URL, st)

	// A body on GET is dropped.
	resp, err := c.Do(ctx, hubsdk.Request{
		Endpoint: hubsdk.PathCourses,
		Method:   hubsdk.MethodGet,
		Body:     map[string]string{"ignored": "yes"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, resp.Fallback)

	var courses []hubsdk.Course
	require.NoError(t, resp.Decode(&courses))
	require.Len(t, courses, 1)
	require.Equal(t, "French for Beginners", courses[0].Title)
}

func TestDo_AuthAttachesBearerAndBody(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 7, body["course"])

		writeJSON(w, http.StatusCreated, `{"id":11,"course":7}`)
	}))

	st := newStore(t, srv.URL)
	require.NoError(t, st.SetTokens(ctx, "abc", "r"))
	c := newClient(t, srv.URL, st)

	resp, err := c.Do(ctx, hubsdk.Request{
		Endpoint: hubsdk.PathEnrollments,
		Method:   hubsdk.MethodPost,
		Body:     map[string]int{"course": 7},
		Auth:     true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDo_AuthWithoutTokenSendsNoHeader(t *testing.T) {
	t.Parallel()

	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{}`)
	}))

	c := newClient(t, srv.URL, newStore(t, srv.URL))
	_, err := c.Do(context.Background(), hubsdk.Request{Endpoint: hubsdk.PathMe, Method: hubsdk.MethodGet, Auth: true})
	require.NoError(t, err)
}

func TestDo_InvalidMethodFailsBeforeIO(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	c := newClient(t, srv.URL, newStore(t, srv.URL))
	for _, m := range []hubsdk.Method{"TRACE", "get", ""} {
		_, err := c.Do(context.Background(), hubsdk.Request{Endpoint: "/", Method: m})
		require.ErrorIs(t, err, hubsdk.ErrInvalidMethod)
	}
	require.Zero(t, hits.Load())
}

func TestDo_QueryEncoding(t *testing.T) {
	t.Parallel()

	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("featured"))
		require.Equal(t, "3", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `[]`)
	}))

	c := newClient(t, srv.URL, newStore(t, srv.URL))
	_, err := c.Do(context.Background(), hubsdk.Request{
		Endpoint: hubsdk.PathCourses,
		Method:   hubsdk.MethodGet,
		Query:    url.Values{"featured": {"true"}, "limit": {"3"}},
	})
	require.NoError(t, err)
}

func TestDo_ResponseDecoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		contentType  string
		body         string
		wantBody     string
		wantFallback bool
	}{
		{"json", 200, "application/json", `{"ok":true}`, `{"ok":true}`, false},
		{"json with charset", 200, "application/json; charset=utf-8", `[1,2]`, `[1,2]`, false},
		{"empty json", 200, "application/json", ``, `null`, false},
		{"invalid json", 200, "application/json", `{"broken`, `{"detail":"{\"broken"}`, true},
		{"plain text", 200, "text/plain", `pong`, `{"detail":"pong"}`, true},
		{"no content type", 200, "", `hello`, `{"detail":"hello"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				} else {
					w.Header()["Content-Type"] = nil
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			c := newClient(t, srv.URL, newStore(t, srv.URL))
			resp, err := c.Do(context.Background(), hubsdk.Request{Endpoint: "/x", Method: hubsdk.MethodGet})
			require.NoError(t, err)
			require.JSONEq(t, tt.wantBody, string(resp.Body))
			require.Equal(t, tt.wantFallback, resp.Fallback)
		})
	}
}

func TestDo_HTMLServerErrorBecomesDetail(t *testing.T) {
	t.Parallel()

	const page = "<html><body>Server Error (500)</body></html>"
	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(page))
	}))

	c := newClient(t, srv.URL, newStore(t, srv.URL))
	_, err := c.Do(context.Background(), hubsdk.Request{Endpoint: hubsdk.PathCourses, Method: hubsdk.MethodGet})

	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	require.True(t, httpErr.Fallback)
	require.Equal(t, page, httpErr.Message)

	var data map[string]string
	require.NoError(t, json.Unmarshal(httpErr.Data, &data))
	require.Equal(t, page, data["detail"])
	require.NotErrorIs(t, err, hubsdk.ErrAuthExpired)
}

func TestDo_HTTPErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"detail", 404, `{"detail":"Not found."}`, "Not found."},
		{"empty detail", 400, `{"detail":""}`, "API request failed with status: 400"},
		{"field errors", 400, `{"email":["Enter a valid email address."]}`, "API request failed with status: 400"},
		{"non string detail", 409, `{"detail":{"code":1}}`, "API request failed with status: 409"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			c := newClient(t, srv.URL, newStore(t, srv.URL))
			_, err := c.Do(context.Background(), hubsdk.Request{Endpoint: "/x", Method: hubsdk.MethodGet})

			var httpErr *hubsdk.HTTPError
			require.ErrorAs(t, err, &httpErr)
			require.Equal(t, tt.status, httpErr.StatusCode)
			require.Equal(t, tt.message, httpErr.Message)
			require.JSONEq(t, tt.body, string(httpErr.Data))
		})
	}
}

func TestDo_UnauthorizedPublicRequestIsReturnedAsIs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+hubsdk.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`)
	})
	mux.HandleFunc("POST "+hubsdk.PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, `{"access":"new"}`)
	})
	srv := startServer(t, mux)

	st := newStore(t, srv.URL)
	require.NoError(t, st.SetTokens(ctx, "a", "r"))
	c := newClient(t, srv.URL, st)

	_, err := c.Do(ctx, hubsdk.Request{Endpoint: hubsdk.PathLogin, Method: hubsdk.MethodPost, Body: map[string]string{}})
	require.ErrorIs(t, err, hubsdk.ErrAuthExpired)
	require.Zero(t, refreshes.Load())

	access, err := st.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", access)
}

func TestDo_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newClient(t, base, newStore(t, base))
	_, err := c.Do(context.Background(), hubsdk.Request{Endpoint: hubsdk.PathCourses, Method: hubsdk.MethodGet})
	require.ErrorIs(t, err, hubsdk.ErrNetwork)

	var netErr *hubsdk.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, http.MethodGet, netErr.Method)
	require.Equal(t, base+hubsdk.PathCourses, netErr.URL)
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newClient(t, srv.URL, newStore(t, srv.URL))
	_, err := c.Do(ctx, hubsdk.Request{Endpoint: "/slow", Method: hubsdk.MethodGet})
	require.ErrorIs(t, err, hubsdk.ErrNetwork)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	st := newStore(t, "http://localhost:8000")

	_, err := hubsdk.New(hubsdk.Config{BaseURL: "http://localhost:8000"})
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)

	_, err = hubsdk.New(hubsdk.Config{Credentials: st})
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)

	_, err = hubsdk.New(hubsdk.Config{BaseURL: "ftp://localhost", Credentials: st})
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)

	c, err := hubsdk.New(hubsdk.Config{BaseURL: "http://localhost:8000/", Credentials: st})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", c.BaseURL())
}
