package hubsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/frenchtutorhub/hub/pkg/cryptox"
)

// refreshAfterUnauthorized runs the refresh step of the retry cycle. It
// returns the new access token, or false when the caller should surface the
// original 401. Failures clear the stored credentials. A non-nil error means
// ctx ended first; the stored credentials are left untouched.
func (c *Client) refreshAfterUnauthorized(ctx context.Context) (string, bool, error) {
	log := c.log(ctx)

	refresh, err := c.creds.RefreshToken(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		log.Warn("read refresh token failed", "error", err)
		return "", false, nil
	}
	if refresh == "" {
		return "", false, nil
	}

	if !c.coalesce {
		access, err := c.refresh(ctx, refresh)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return "", false, err
			}
			return "", false, nil
		}
		return access, true, nil
	}

	// Keyed by refresh token so callers holding different credentials never
	// share a result. The shared refresh outlives any single caller.
	ch := c.refreshGroup.DoChan(refresh, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), refresh)
	})
	select {
	case <-ctx.Done():
		return "", false, fmt.Errorf("hubsdk: token refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", false, nil
		}
		if res.Shared {
			log.Debug("joined in-flight token refresh")
		}
		return res.Val.(string), true, nil
	}
}

// refresh exchanges the refresh token, stores the result and syncs the
// server session. On any failure the credentials are cleared.
func (c *Client) refresh(ctx context.Context, refresh string) (string, error) {
	c.stats.refreshes.Add(1)
	log := c.log(ctx).With("refresh_fp", cryptox.FingerprintToken(refresh))

	resp, err := c.send(ctx, Request{
		Endpoint: PathTokenRefresh,
		Method:   MethodPost,
		Body:     refreshRequest{Refresh: refresh},
	}, "")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Debug("token refresh abandoned", "error", ctxErr)
			return "", fmt.Errorf("hubsdk: token refresh: %w", ctxErr)
		}
		c.expire(ctx, err)
		return "", err
	}

	var pair TokenPair
	if err := resp.Decode(&pair); err != nil || pair.Access == "" {
		if err == nil {
			err = errRefreshRejected
		}
		c.expire(ctx, err)
		return "", err
	}

	next := refresh
	if pair.Refresh != "" {
		next = pair.Refresh
	}
	// The server has answered; a rotated refresh token may already have
	// replaced the stored one, so the write must not depend on ctx.
	if err := c.creds.SetTokens(context.WithoutCancel(ctx), pair.Access, next); err != nil {
		err = fmt.Errorf("hubsdk: store refreshed tokens: %w", err)
		c.expire(ctx, err)
		return "", err
	}

	log.Info("access token refreshed",
		"access_fp", cryptox.FingerprintToken(pair.Access),
		"rotated", pair.Refresh != "",
	)

	c.syncTokens(ctx, pair.Access, next)
	return pair.Access, nil
}

// expire clears the store after an irrecoverable refresh failure.
func (c *Client) expire(ctx context.Context, cause error) {
	c.stats.refreshFailures.Add(1)
	log := c.log(ctx)

	if err := c.creds.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Error("clear credentials failed", "error", err)
	}
	log.Warn("token refresh failed; credentials cleared", "error", cause)

	if c.onCleared != nil {
		c.onCleared(ctx)
	}
}

// syncTokens pushes the refreshed pair into the server-side session so
// cookie-authenticated pages keep working. Failures are logged only.
func (c *Client) syncTokens(ctx context.Context, access, refresh string) {
	if !c.syncSession {
		return
	}
	log := c.log(ctx)

	header := http.Header{}
	csrf, err := c.csrf(ctx)
	if err != nil {
		c.stats.syncFailures.Add(1)
		log.Warn("session sync skipped: csrf token unavailable", "error", err)
		return
	}
	if csrf != "" {
		header.Set(HeaderCSRF, csrf)
	}

	_, err = c.send(ctx, Request{
		Endpoint: PathSyncTokens,
		Method:   MethodPost,
		Body:     syncRequest{AccessToken: access, RefreshToken: refresh},
		Header:   header,
	}, "")
	if err != nil {
		c.stats.syncFailures.Add(1)
		log.Warn("session sync failed", "error", err)
		return
	}

	log.Debug("session tokens synced")
}
