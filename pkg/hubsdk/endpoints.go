package hubsdk

import "fmt"

// API paths. Trailing slashes are significant to the backend.
const (
	PathLogin         = "/api/auth/login/"
	PathRegister      = "/api/auth/register/"
	PathTokenRefresh  = "/api/auth/token/refresh/"
	PathSyncTokens    = "/api/auth/sync-tokens/"
	PathLogout        = "/api/auth/logout/"
	PathMe            = "/api/auth/me/"
	PathMyOrders      = "/api/auth/me/orders/"
	PathMyEnrollments = "/api/auth/me/enrollments/"
	PathProfile       = "/api/accounts/profile/"

	PathCourses = "/api/courses/"

	PathEnrollments     = "/api/enrollments/"
	PathUserEnrollments = "/api/enrollments/user/"

	PathPaymentCreate  = "/api/payments/create/"
	PathPaymentVerify  = "/api/payments/verify/"
	PathPaymentHistory = "/api/payments/history/"

	PathLiveUpcoming = "/api/live/upcoming/"
)

// HeaderCSRF carries the Django CSRF token on cookie-authenticated calls.
const HeaderCSRF = "X-CSRFToken"

// CookieCSRF is the cookie Django stores its CSRF token in.
const CookieCSRF = "csrftoken"

func coursePath(id int64) string        { return fmt.Sprintf("/api/courses/%d/", id) }
func courseContentPath(id int64) string { return fmt.Sprintf("/api/courses/%d/content/", id) }
func enrollmentPath(id int64) string    { return fmt.Sprintf("/api/enrollments/%d/", id) }
func liveSessionPath(id int64) string   { return fmt.Sprintf("/api/live/sessions/%d/", id) }
func liveJoinPath(id int64) string      { return fmt.Sprintf("/api/live/sessions/%d/join/", id) }
