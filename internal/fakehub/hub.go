// Package fakehub is an in-process stand-in for the FrenchTutor Hub backend.
// It implements the API surface the client uses, issues real HS256 tokens
// and records what it saw so tests can assert on the refresh cycle.
package fakehub

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frenchtutorhub/hub/pkg/cryptox"
	"github.com/frenchtutorhub/hub/pkg/httpx"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/frenchtutorhub/hub/pkg/jwtx"
	"github.com/frenchtutorhub/hub/pkg/slogx"
)

// Options configures a Hub.
type Options struct {
	// Secret signs tokens. A random one is generated when empty.
	Secret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotateRefresh returns a new refresh token on every refresh and
	// blacklists the old one.
	RotateRefresh bool

	// OnRefresh runs at the start of every refresh request, before the
	// token is checked. Tests use it to hold refreshes in flight.
	OnRefresh func()

	Logger *slog.Logger
}

// Hub is the fake backend. It implements http.Handler.
type Hub struct {
	mux    *http.ServeMux
	tokens *tokenIssuer
	logger *slog.Logger
	opts   Options

	mu          sync.Mutex
	users       map[int64]*account
	courses     []hubsdk.Course
	enrollments []hubsdk.Enrollment
	payments    []hubsdk.Payment
	sessions    []hubsdk.LiveSession
	nextID      int64
	overrides   map[string]cannedResponse
	lastSync    SyncRecord

	refreshCalls atomic.Int64
	syncCalls    atomic.Int64
	logoutCalls  atomic.Int64
	unauthorized atomic.Int64
	hits         sync.Map // "METHOD /path" -> *atomic.Int64
}

type account struct {
	user     hubsdk.User
	password string
	profile  hubsdk.Profile
}

// SyncRecord is the last body and CSRF header the sync endpoint received.
type SyncRecord struct {
	AccessToken  string
	RefreshToken string
	CSRF         string
}

type cannedResponse struct {
	status      int
	contentType string
	body        string
}

// New builds a Hub seeded with a small catalogue and no users.
func New(opts Options) (*Hub, error) {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
	}
	if opts.AccessTTL == 0 {
		opts.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if opts.Logger == nil {
		opts.Logger = slogx.Discard()
	}

	issuer, err := newTokenIssuer(opts.Secret, opts.AccessTTL, opts.RefreshTTL)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		mux:       http.NewServeMux(),
		tokens:    issuer,
		logger:    opts.Logger,
		opts:      opts,
		users:     make(map[int64]*account),
		overrides: make(map[string]cannedResponse),
		nextID:    100,
	}
	h.seedCatalogue()
	h.routes()
	return h, nil
}

// Start serves h on a local httptest server. Close it when done.
func Start(opts Options) (*Hub, *httptest.Server, error) {
	h, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	return h, httptest.NewServer(h), nil
}

func (h *Hub) routes() {
	authn := httpx.AuthnMiddleware(h.tokens)
	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, authn)
	}

	h.mux.HandleFunc("POST /api/auth/login/{$}", h.handleLogin)
	h.mux.HandleFunc("POST /api/auth/register/{$}", h.handleRegister)
	h.mux.HandleFunc("POST /api/auth/token/refresh/{$}", h.handleRefresh)
	h.mux.HandleFunc("POST /api/auth/sync-tokens/{$}", h.handleSync)
	h.mux.Handle("POST /api/auth/logout/{$}", secured(h.handleLogout))
	h.mux.Handle("GET /api/auth/me/{$}", secured(h.handleMe))
	h.mux.Handle("GET /api/auth/me/orders/{$}", secured(h.handleMyOrders))
	h.mux.Handle("GET /api/auth/me/enrollments/{$}", secured(h.handleAccountEnrollments))
	h.mux.Handle("GET /api/accounts/profile/{$}", secured(h.handleProfile))
	h.mux.Handle("PATCH /api/accounts/profile/{$}", secured(h.handleUpdateProfile))

	h.mux.HandleFunc("GET /api/courses/{$}", h.handleListCourses)
	h.mux.HandleFunc("GET /api/courses/{id}/{$}", h.handleGetCourse)
	h.mux.Handle("GET /api/courses/{id}/content/{$}", secured(h.handleCourseContent))

	h.mux.Handle("POST /api/enrollments/{$}", secured(h.handleEnroll))
	h.mux.Handle("GET /api/enrollments/user/{$}", secured(h.handleMyEnrollments))
	h.mux.Handle("PATCH /api/enrollments/{id}/{$}", secured(h.handleUpdateProgress))

	h.mux.Handle("POST /api/payments/create/{$}", secured(h.handleCreatePayment))
	h.mux.Handle("POST /api/payments/verify/{$}", secured(h.handleVerifyPayment))
	h.mux.Handle("GET /api/payments/history/{$}", secured(h.handlePaymentHistory))

	h.mux.Handle("GET /api/live/upcoming/{$}", secured(h.handleUpcoming))
	h.mux.Handle("GET /api/live/sessions/{id}/{$}", secured(h.handleGetSession))
	h.mux.Handle("POST /api/live/sessions/{id}/join/{$}", secured(h.handleJoinSession))
}

// ServeHTTP counts the request, hands out a CSRF cookie when the client has
// none, then serves either a canned override or the real handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	counter, _ := h.hits.LoadOrStore(key, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	h.logger.Debug("fakehub request",
		"method", r.Method,
		"path", r.URL.Path,
		"req_id", r.Header.Get(httpx.HeaderRequestID),
	)

	if _, err := r.Cookie(hubsdk.CookieCSRF); err != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     hubsdk.CookieCSRF,
			Value:    cryptox.MustGenerateToken(cryptox.TokenSize128),
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}

	h.mu.Lock()
	canned, ok := h.overrides[key]
	h.mu.Unlock()
	if ok {
		if canned.contentType != "" {
			w.Header().Set("Content-Type", canned.contentType)
		}
		w.WriteHeader(canned.status)
		_, _ = w.Write([]byte(canned.body))
		return
	}

	rec := &statusRecorder{ResponseWriter: w}
	h.mux.ServeHTTP(rec, r)
	if rec.status == http.StatusUnauthorized {
		h.unauthorized.Add(1)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

// ============================================================================
// Test Controls
// ============================================================================

// Override makes method+path answer with a fixed response until cleared.
func (h *Hub) Override(method, path string, status int, contentType, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overrides[method+" "+path] = cannedResponse{status: status, contentType: contentType, body: body}
}

// ClearOverrides removes every override.
func (h *Hub) ClearOverrides() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.overrides)
}

// RevokeAccessTokens invalidates every access token issued so far, so the
// next authenticated call answers 401.
func (h *Hub) RevokeAccessTokens() { h.tokens.revokeAllAccess() }

// RevokeRefreshToken blacklists one refresh token.
func (h *Hub) RevokeRefreshToken(token string) { h.tokens.revokeRefresh(token) }

// IssueTokens signs a fresh pair for an existing user.
func (h *Hub) IssueTokens(userID int64) (access, refresh string, err error) {
	return h.tokens.issuePair(userID)
}

// Hits returns how many requests reached method+path.
func (h *Hub) Hits(method, path string) int64 {
	v, ok := h.hits.Load(method + " " + path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// RefreshCalls returns how many refresh requests were received.
func (h *Hub) RefreshCalls() int64 { return h.refreshCalls.Load() }

// SyncCalls returns how many session sync requests were received.
func (h *Hub) SyncCalls() int64 { return h.syncCalls.Load() }

// LogoutCalls returns how many logout requests were received.
func (h *Hub) LogoutCalls() int64 { return h.logoutCalls.Load() }

// Unauthorized returns how many responses were 401.
func (h *Hub) Unauthorized() int64 { return h.unauthorized.Load() }

// LastSync returns the most recent accepted session sync.
func (h *Hub) LastSync() SyncRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSync
}

// AddUser registers an account directly and returns its id.
func (h *Hub) AddUser(username, password string) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addUserLocked(hubsdk.RegisterRequest{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: password,
		Role:     "student",
	})
}

func (h *Hub) addUserLocked(req hubsdk.RegisterRequest) int64 {
	h.nextID++
	role := req.Role
	if role == "" {
		role = "student"
	}
	h.users[h.nextID] = &account{
		user: hubsdk.User{
			ID:        h.nextID,
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      role,
		},
		password: req.Password,
		profile:  hubsdk.Profile{SubscriptionType: "free"},
	}
	return h.nextID
}

// AddLiveSession schedules a session for userID on courseID.
func (h *Hub) AddLiveSession(userID, courseID int64, start time.Time) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.sessions = append(h.sessions, hubsdk.LiveSession{
		ID:      h.nextID,
		Course:  courseID,
		Student: userID,
		TimeSlotDetails: &hubsdk.TimeSlot{
			ID:        h.nextID,
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		},
		MeetingPlatform: "zoom",
		Status:          "scheduled",
		CreatedAt:       start.Add(-24 * time.Hour),
		UpdatedAt:       start.Add(-24 * time.Hour),
	})
	return h.nextID
}
