package hubsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CSRFSource returns the value for the X-CSRFToken header. An empty string
// with a nil error sends no header.
type CSRFSource func(ctx context.Context) (string, error)

// StaticCSRF always returns token.
func StaticCSRF(token string) CSRFSource {
	return func(context.Context) (string, error) { return token, nil }
}

// JarCSRF reads the csrftoken cookie the backend set in jar for baseURL.
// Cookies scoped to a path prefix of baseURL are found too.
func JarCSRF(jar http.CookieJar, baseURL string) CSRFSource {
	return func(context.Context) (string, error) {
		if jar == nil {
			return "", nil
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return "", err
		}
		u.Path = strings.TrimSuffix(u.Path, "/") + "/"
		u.RawQuery = ""
		for _, ck := range jar.Cookies(u) {
			if ck.Name == CookieCSRF {
				return ck.Value, nil
			}
		}
		return "", nil
	}
}
