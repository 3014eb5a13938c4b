package hubsdk

import "context"

// Profile returns the current user's role profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	return call[*Profile](ctx, c, Request{Endpoint: PathProfile, Method: MethodGet, Auth: true})
}

// UpdateProfile applies a partial update and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	return call[*Profile](ctx, c, Request{
		Endpoint: PathProfile,
		Method:   MethodPatch,
		Body:     update,
		Auth:     true,
	})
}

// MyOrders lists the current user's orders.
func (c *Client) MyOrders(ctx context.Context) ([]Order, error) {
	return callList[Order](ctx, c, Request{Endpoint: PathMyOrders, Method: MethodGet, Auth: true})
}
