package hubsdk

import (
	"context"
	"fmt"
)

// UpcomingSessions lists the current user's scheduled live sessions.
func (c *Client) UpcomingSessions(ctx context.Context) ([]LiveSession, error) {
	return callList[LiveSession](ctx, c, Request{Endpoint: PathLiveUpcoming, Method: MethodGet, Auth: true})
}

// GetLiveSession returns one live session.
func (c *Client) GetLiveSession(ctx context.Context, id int64) (*LiveSession, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: session id must be positive", ErrInvalidArgument)
	}
	return call[*LiveSession](ctx, c, Request{Endpoint: liveSessionPath(id), Method: MethodGet, Auth: true})
}

// JoinLiveSession marks the user as joined and returns the session with its
// meeting details filled in.
func (c *Client) JoinLiveSession(ctx context.Context, id int64) (*LiveSession, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: session id must be positive", ErrInvalidArgument)
	}
	return call[*LiveSession](ctx, c, Request{Endpoint: liveJoinPath(id), Method: MethodPost, Auth: true})
}
