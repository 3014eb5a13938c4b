package hubsdk

import (
	"context"
	"fmt"
)

// CreatePayment opens an order for a course and returns the card-processor
// intent for it.
func (c *Client) CreatePayment(ctx context.Context, courseID int64) (*PaymentIntent, error) {
	if courseID <= 0 {
		return nil, fmt.Errorf("%w: course id must be positive", ErrInvalidArgument)
	}
	return call[*PaymentIntent](ctx, c, Request{
		Endpoint: PathPaymentCreate,
		Method:   MethodPost,
		Body:     createPaymentRequest{CourseID: courseID},
		Auth:     true,
	})
}

// VerifyPayment confirms an order once the card processor reports success.
func (c *Client) VerifyPayment(ctx context.Context, orderID int64) (*PaymentStatus, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: order id must be positive", ErrInvalidArgument)
	}
	return call[*PaymentStatus](ctx, c, Request{
		Endpoint: PathPaymentVerify,
		Method:   MethodPost,
		Body:     verifyPaymentRequest{OrderID: orderID},
		Auth:     true,
	})
}

// PaymentHistory lists the current user's payments.
func (c *Client) PaymentHistory(ctx context.Context) ([]Payment, error) {
	return callList[Payment](ctx, c, Request{Endpoint: PathPaymentHistory, Method: MethodGet, Auth: true})
}
