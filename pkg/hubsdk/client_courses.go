package hubsdk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultFeaturedLimit is the number of featured courses shown on the home
// page.
const DefaultFeaturedLimit = 3

// ListCourses lists published courses. The catalogue is public, so no
// token is sent.
func (c *Client) ListCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	return callList[Course](ctx, c, Request{
		Endpoint: PathCourses,
		Method:   MethodGet,
		Query:    filter.Values(),
	})
}

// FeaturedCourses returns up to limit featured courses. A limit of zero or
// less uses DefaultFeaturedLimit.
func (c *Client) FeaturedCourses(ctx context.Context, limit int) ([]Course, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	q := url.Values{}
	q.Set("featured", "true")
	q.Set("limit", strconv.Itoa(limit))

	return callList[Course](ctx, c, Request{Endpoint: PathCourses, Method: MethodGet, Query: q})
}

// GetCourse returns one course.
func (c *Client) GetCourse(ctx context.Context, id int64) (*Course, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: course id must be positive", ErrInvalidArgument)
	}
	return call[*Course](ctx, c, Request{Endpoint: coursePath(id), Method: MethodGet})
}

// CourseContent returns the materials of a course the user is enrolled in.
func (c *Client) CourseContent(ctx context.Context, id int64) (*CourseContent, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: course id must be positive", ErrInvalidArgument)
	}
	return call[*CourseContent](ctx, c, Request{Endpoint: courseContentPath(id), Method: MethodGet, Auth: true})
}
