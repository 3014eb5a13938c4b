package hubsdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frenchtutorhub/hub/internal/fakehub"
	"github.com/frenchtutorhub/hub/pkg/credstore"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/frenchtutorhub/hub/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, baseURL string) *credstore.Store {
	t.Helper()
	st, err := credstore.New(credstore.Options{CookieURL: baseURL, Logger: slogx.Discard()})
	require.NoError(t, err)
	return st
}

func newClient(t *testing.T, baseURL string, st hubsdk.CredentialStore, mutate ...func(*hubsdk.Config)) *hubsdk.Client {
	t.Helper()
	cfg := hubsdk.Config{
		BaseURL:     baseURL,
		Credentials: st,
		Logger:      slogx.Discard(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := hubsdk.New(cfg)
	require.NoError(t, err)
	return c
}

// startServer serves handler and closes it with the test.
func startServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// startHub runs a fake backend with one user "marie" / "motdepasse".
func startHub(t *testing.T, opts fakehub.Options) (*fakehub.Hub, *httptest.Server, int64) {
	t.Helper()
	hub, srv, err := fakehub.Start(opts)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return hub, srv, hub.AddUser("marie", "motdepasse")
}

// loggedIn returns a client for srv already holding marie's tokens.
func loggedIn(t *testing.T, srv *httptest.Server, mutate ...func(*hubsdk.Config)) (*hubsdk.Client, *credstore.Store) {
	t.Helper()
	st := newStore(t, srv.URL)
	c := newClient(t, srv.URL, st, mutate...)
	_, err := c.Login(context.Background(), "marie", "motdepasse")
	require.NoError(t, err)
	return c, st
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
