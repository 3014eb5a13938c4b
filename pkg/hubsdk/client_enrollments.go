package hubsdk

import (
	"context"
	"fmt"
)

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID int64) (*Enrollment, error) {
	if courseID <= 0 {
		return nil, fmt.Errorf("%w: course id must be positive", ErrInvalidArgument)
	}
	return call[*Enrollment](ctx, c, Request{
		Endpoint: PathEnrollments,
		Method:   MethodPost,
		Body:     enrollRequest{Course: courseID},
		Auth:     true,
	})
}

// MyEnrollments lists the current user's enrollments.
func (c *Client) MyEnrollments(ctx context.Context) ([]Enrollment, error) {
	return callList[Enrollment](ctx, c, Request{Endpoint: PathUserEnrollments, Method: MethodGet, Auth: true})
}

// AccountEnrollments lists the current user's enrollments from the account
// dashboard, newest first and unpaginated.
func (c *Client) AccountEnrollments(ctx context.Context) ([]Enrollment, error) {
	return callList[Enrollment](ctx, c, Request{Endpoint: PathMyEnrollments, Method: MethodGet, Auth: true})
}

// UpdateProgress records course progress as a percentage.
func (c *Client) UpdateProgress(ctx context.Context, enrollmentID int64, progress int) (*Enrollment, error) {
	if enrollmentID <= 0 {
		return nil, fmt.Errorf("%w: enrollment id must be positive", ErrInvalidArgument)
	}
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("%w: progress %d is outside 0-100", ErrInvalidArgument, progress)
	}
	return call[*Enrollment](ctx, c, Request{
		Endpoint: enrollmentPath(enrollmentID),
		Method:   MethodPatch,
		Body:     progressRequest{Progress: progress},
		Auth:     true,
	})
}
