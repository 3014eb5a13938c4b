package hubsdk

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// ============================================================================
// Auth Types
// ============================================================================

// TokenPair is the body of a token refresh response. Refresh is only set
// when the backend rotates refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type syncRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginRequest is the body of POST /api/auth/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

// RegisterRequest is the body of POST /api/auth/register/.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"` // "student" (default) or "teacher"
}

// User is the account as returned by /api/auth/me/.
type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      string          `json:"role,omitempty"`
	Profile   json.RawMessage `json:"profile,omitempty"`
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// Profile is the role-specific profile. Student and teacher profiles share
// this shape; fields the role lacks stay empty.
type Profile struct {
	ProfilePicture     string `json:"profile_picture,omitempty"`
	GovernmentID       string `json:"government_id,omitempty"`
	SubscriptionType   string `json:"subscription_type,omitempty"`
	Bio                string `json:"bio,omitempty"`
	VerificationStatus string `json:"verification_status,omitempty"`
	AvgRating          string `json:"avg_rating,omitempty"`
}

// ProfileUpdate is a partial profile update. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// ============================================================================
// Course Types
// ============================================================================

// Category groups courses.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Course is a catalogue entry. Price is a decimal string as the backend
// sends it, e.g. "49.99".
type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	Published   bool      `json:"published"`
	Teacher     int64     `json:"teacher,omitempty"`
	TeacherName string    `json:"teacher_name,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Level       string    `json:"level,omitempty"`
	Featured    bool      `json:"featured,omitempty"`
}

// CourseFilter narrows ListCourses. Zero fields are omitted.
type CourseFilter struct {
	Category string
	Level    string
	Search   string
	Ordering string
	Page     int
}

// Values encodes the filter as query parameters.
func (f CourseFilter) Values() url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Level != "" {
		v.Set("level", f.Level)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Ordering != "" {
		v.Set("ordering", f.Ordering)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return v
}

// ContentItem is one lesson resource of a course.
type ContentItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// CourseContent lists a course's materials by kind.
type CourseContent struct {
	Videos      []ContentItem `json:"videos"`
	PDFs        []ContentItem `json:"pdfs"`
	Assignments []ContentItem `json:"assignments"`
	Quizzes     []ContentItem `json:"quizzes"`
}

// ============================================================================
// Enrollment Types
// ============================================================================

// Enrollment links the current user to a course.
type Enrollment struct {
	ID            int64      `json:"id"`
	Student       int64      `json:"student"`
	Course        int64      `json:"course"`
	CourseDetails *Course    `json:"course_details,omitempty"`
	EnrolledAt    time.Time  `json:"enrolled_at"`
	IsActive      bool       `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Progress      int        `json:"progress"`
}

type enrollRequest struct {
	Course int64 `json:"course"`
}

type progressRequest struct {
	Progress int `json:"progress"`
}

// ============================================================================
// Payment Types
// ============================================================================

// CourseSummary is the short course form embedded in orders.
type CourseSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Price       string    `json:"price"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Order is an entry of /api/auth/me/orders/.
type Order struct {
	ID        int64          `json:"id"`
	Course    *CourseSummary `json:"course"`
	Amount    string         `json:"amount"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Payment is an entry of /api/payments/history/.
type Payment struct {
	ID        int64     `json:"id"`
	User      int64     `json:"user"`
	Course    int64     `json:"course"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentIntent is returned when a payment is created. ClientSecret is handed
// to the card processor.
type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      int64  `json:"order_id"`
}

// PaymentStatus is the result of verifying a payment.
type PaymentStatus struct {
	Status string `json:"status"`
}

type createPaymentRequest struct {
	CourseID int64 `json:"course_id"`
}

type verifyPaymentRequest struct {
	OrderID int64 `json:"order_id"`
}

// ============================================================================
// Live Session Types
// ============================================================================

// TimeSlot is a teacher's bookable slot.
type TimeSlot struct {
	ID          int64     `json:"id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

// LiveSession is a scheduled one-to-one lesson. Meeting fields are only
// filled once the session is joinable.
type LiveSession struct {
	ID              int64     `json:"id"`
	Course          int64     `json:"course"`
	CourseDetails   *Course   `json:"course_details,omitempty"`
	TimeSlot        int64     `json:"time_slot"`
	TimeSlotDetails *TimeSlot `json:"time_slot_details,omitempty"`
	Student         int64     `json:"student"`
	MeetingPlatform string    `json:"meeting_platform,omitempty"`
	MeetingURL      string    `json:"meeting_url,omitempty"`
	MeetingID       string    `json:"meeting_id,omitempty"`
	MeetingPassword string    `json:"meeting_password,omitempty"`
	Status          string    `json:"status"`
	StudentNotes    string    `json:"student_notes,omitempty"`
	TeacherNotes    string    `json:"teacher_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ============================================================================
// Token Introspection
// ============================================================================

// TokenInfo describes the stored access token without verifying it.
type TokenInfo struct {
	UserID    string
	TokenType string
	ExpiresAt time.Time
	Expired   bool
}
