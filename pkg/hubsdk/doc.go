/*
Package hubsdk is a client for the FrenchTutor Hub course marketplace API.

# Overview

Every call goes through one executor, Client.Do, which sends JSON, attaches
the stored access token when a request asks for it, and turns responses
into either a *Response or a typed error. Typed helpers (Login, ListCourses,
Enroll, ...) are thin wrappers over Do.

	store, _ := credstore.New(credstore.Options{CookieURL: "https://hub.example"})
	client, _ := hubsdk.New(hubsdk.Config{
		BaseURL:     "https://hub.example",
		Credentials: store,
	})

	if _, err := client.Login(ctx, "marie", "motdepasse"); err != nil {
		return err
	}
	courses, err := client.ListCourses(ctx, hubsdk.CourseFilter{Level: "beginner"})

# Credentials

The client never keeps tokens itself. It reads and writes them through a
CredentialStore, normally a *credstore.Store, which mirrors the access token
into a long-lived scope, a session scope and an access_token cookie.

# Expired Tokens

When an authenticated request gets a 401 and a refresh token is stored, the
client:

 1. POSTs the refresh token to /api/auth/token/refresh/
 2. stores the new access token (and the rotated refresh token, if any)
 3. pushes both to /api/auth/sync-tokens/ so the server session matches;
    failures here are only logged
 4. repeats the original request once with the new token

If the refresh fails the store is cleared, Config.OnCredentialsCleared runs
and the original 401 is returned. A 401 that reaches the caller always
matches ErrAuthExpired:

	if errors.Is(err, hubsdk.ErrAuthExpired) {
		// prompt for login
	}

By default each concurrent 401 refreshes on its own. Set
Config.CoalesceRefresh to share one in-flight refresh.

# Errors

  - *HTTPError: the server answered outside 2xx. Message is the payload's
    "detail" when present. FieldErrors parses validation payloads.
  - *NetworkError: no response at all, matches ErrNetwork. Context
    cancellation is reported this way too.
  - ErrInvalidMethod, ErrInvalidArgument: rejected before any I/O.

Responses that are not JSON are never an error by themselves: the raw text
is wrapped as {"detail": "..."} and Response.Fallback (or HTTPError.Fallback)
is set.
*/
package hubsdk
