package hubsdk_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/stretchr/testify/require"
)

func TestJarCSRF(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name       string
		cookieURL  string
		cookiePath string
		baseURL    string
		want       string
	}{
		{"root cookie", "https://hub.example/", "/", "https://hub.example", "root"},
		{"prefixed base keeps root cookie", "https://hub.example/", "/", "https://hub.example/app", "root"},
		{"cookie scoped to base path", "https://hub.example/app/", "/app", "https://hub.example/app", "scoped"},
		{"cookie scoped to base path with slash", "https://hub.example/app/", "/app", "https://hub.example/app/", "scoped"},
		{"cookie scoped to another path", "https://hub.example/other/", "/other", "https://hub.example/app", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			jar, err := cookiejar.New(nil)
			require.NoError(t, err)
			u, err := url.Parse(tt.cookieURL)
			require.NoError(t, err)
			value := tt.want
			if value == "" {
				value = "elsewhere"
			}
			jar.SetCookies(u, []*http.Cookie{{Name: hubsdk.CookieCSRF, Value: value, Path: tt.cookiePath}})

			got, err := hubsdk.JarCSRF(jar, tt.baseURL)(ctx)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("nil jar", func(t *testing.T) {
		t.Parallel()
		got, err := hubsdk.JarCSRF(nil, "https://hub.example")(ctx)
		require.NoError(t, err)
		require.Empty(t, got)
	})
}
