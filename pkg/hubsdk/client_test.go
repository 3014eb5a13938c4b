package hubsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/frenchtutorhub/hub/internal/fakehub"
	"github.com/frenchtutorhub/hub/pkg/credstore"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/stretchr/testify/require"
)

func TestLogin_StoresTokensAndUserInfo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, srv, userID := startHub(t, fakehub.Options{})

	st := newStore(t, srv.URL)
	c := newClient(t, srv.URL, st)

	ok, err := c.IsAuthenticated(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	resp, err := c.Login(ctx, "marie", "motdepasse")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Access)
	require.NotEmpty(t, resp.Refresh)
	require.Equal(t, userID, resp.User.ID)

	access, err := st.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, resp.Access, access)
	sessionAccess, err := st.SessionAccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, resp.Access, sessionAccess)

	info, err := st.UserInfo(ctx)
	require.NoError(t, err)
	var stored hubsdk.User
	require.NoError(t, json.Unmarshal(info, &stored))
	require.Equal(t, "marie", stored.Username)

	ok, err = c.IsAuthenticated(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	tokenInfo, err := c.TokenInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatInt(userID, 10), tokenInfo.UserID)
	require.Equal(t, "access", tokenInfo.TokenType)
	require.False(t, tokenInfo.Expired)
	require.WithinDuration(t, time.Now().Add(time.Hour), tokenInfo.ExpiresAt, time.Minute)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "marie", me.Username)
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})

	st := newStore(t, srv.URL)
	c := newClient(t, srv.URL, st)

	_, err := c.Login(ctx, "marie", "wrong")
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	require.Equal(t, "No active account found with the given credentials", httpErr.Message)
	require.Zero(t, hub.RefreshCalls())

	_, err = c.Login(ctx, "", "x")
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)

	_, err = c.TokenInfo(ctx)
	require.ErrorIs(t, err, hubsdk.ErrAuthExpired)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, srv, _ := startHub(t, fakehub.Options{})
	c := newClient(t, srv.URL, newStore(t, srv.URL))

	user, err := c.Register(ctx, hubsdk.RegisterRequest{
		Username:  "jules",
		Email:     "jules@example.com",
		Password:  "croissant",
		FirstName: "Jules",
	})
	require.NoError(t, err)
	require.Equal(t, "jules", user.Username)
	require.Equal(t, "student", user.Role)
	require.Equal(t, "Jules", user.FullName())

	_, err = c.Register(ctx, hubsdk.RegisterRequest{Username: "marie", Email: "nope", Password: "abc"})
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	require.Equal(t,
		"username: A user with that username already exists.; "+
			"email: Enter a valid email address.; "+
			"password: Ensure this field has at least 6 characters.",
		httpErr.Message)

	fields := httpErr.FieldErrors()
	require.Len(t, fields, 3)
	require.Equal(t, []string{"Enter a valid email address."}, fields["email"])

	_, err = c.Register(ctx, hubsdk.RegisterRequest{Username: "x"})
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)
}

func TestLogout_ClearsEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})
	c, st := loggedIn(t, srv)

	require.NoError(t, c.Logout(ctx))
	require.EqualValues(t, 1, hub.LogoutCalls())
	require.EqualValues(t, 1, hub.Hits(http.MethodPost, hubsdk.PathLogout))

	access, err := st.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
	info, err := st.UserInfo(ctx)
	require.NoError(t, err)
	require.Nil(t, info)
	_, ok := st.Cookie(credstore.CookieAccessToken)
	require.False(t, ok)

	// Logging out twice is harmless and skips the server call.
	require.NoError(t, c.Logout(ctx))
	require.EqualValues(t, 1, hub.LogoutCalls())
}

func TestLogout_ServerFailureStillClears(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})
	c, st := loggedIn(t, srv)

	hub.Override(http.MethodPost, hubsdk.PathLogout, http.StatusInternalServerError, "text/html", "<h1>oops</h1>")
	require.NoError(t, c.Logout(ctx))

	ok, err := c.IsAuthenticated(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	access, err := st.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestFullCycle_ExpiredAccessIsRefreshedAndSynced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{RotateRefresh: true})
	c, st := loggedIn(t, srv)

	oldAccess, err := st.AccessToken(ctx)
	require.NoError(t, err)
	oldRefresh, err := st.RefreshToken(ctx)
	require.NoError(t, err)

	hub.RevokeAccessTokens()

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "marie", me.Username)
	require.EqualValues(t, 1, hub.RefreshCalls())
	require.EqualValues(t, 1, hub.SyncCalls())

	newAccess, err := st.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, oldAccess, newAccess)
	newRefresh, err := st.RefreshToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, oldRefresh, newRefresh)

	// The sync carried the new pair and the CSRF cookie the backend issued.
	csrf, ok := st.Cookie(hubsdk.CookieCSRF)
	require.True(t, ok)
	last := hub.LastSync()
	require.Equal(t, newAccess, last.AccessToken)
	require.Equal(t, newRefresh, last.RefreshToken)
	require.Equal(t, csrf, last.CSRF)
}

func TestFullCycle_RevokedRefreshLogsOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})

	cleared := make(chan struct{}, 1)
	c, st := loggedIn(t, srv, func(cfg *hubsdk.Config) {
		cfg.OnCredentialsCleared = func(context.Context) { cleared <- struct{}{} }
	})

	refresh, err := st.RefreshToken(ctx)
	require.NoError(t, err)
	hub.RevokeAccessTokens()
	hub.RevokeRefreshToken(refresh)

	_, err = c.MyEnrollments(ctx)
	require.ErrorIs(t, err, hubsdk.ErrAuthExpired)
	require.Len(t, cleared, 1)

	ok, err := c.IsAuthenticated(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, hub.SyncCalls())
}

func TestCourses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})
	c := newClient(t, srv.URL, newStore(t, srv.URL))

	all, err := c.ListCourses(ctx, hubsdk.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	advanced, err := c.ListCourses(ctx, hubsdk.CourseFilter{Level: "advanced"})
	require.NoError(t, err)
	require.Len(t, advanced, 2)

	search, err := c.ListCourses(ctx, hubsdk.CourseFilter{Search: "subjunctive"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	require.Equal(t, "Intermediate Grammar", search[0].Title)

	featured, err := c.FeaturedCourses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	for _, course := range featured {
		require.True(t, course.Featured)
	}

	featured, err = c.FeaturedCourses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, hubsdk.DefaultFeaturedLimit)

	course, err := c.GetCourse(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "Business French", course.Title)
	require.Equal(t, "129.00", course.Price)
	require.Equal(t, "Speaking", course.Category.Name)

	_, err = c.GetCourse(ctx, 999)
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	_, err = c.GetCourse(ctx, 0)
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)

	require.EqualValues(t, 5, hub.Hits(http.MethodGet, hubsdk.PathCourses))
}

func TestEnrollmentsAndContent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})
	c, _ := loggedIn(t, srv)

	_, err := c.CourseContent(ctx, 1)
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.StatusCode)

	enrollment, err := c.Enroll(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, enrollment.Course)
	require.True(t, enrollment.IsActive)
	require.Equal(t, "French for Beginners", enrollment.CourseDetails.Title)

	_, err = c.Enroll(ctx, 1)
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, "You are already enrolled in this course.", httpErr.Message)

	content, err := c.CourseContent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, content.Videos, 1)

	// The backend pages this list.
	mine, err := c.MyEnrollments(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	updated, err := c.UpdateProgress(ctx, enrollment.ID, 55)
	require.NoError(t, err)
	require.Equal(t, 55, updated.Progress)

	path := "/api/enrollments/" + strconv.FormatInt(enrollment.ID, 10) + "/"
	for _, bad := range []int{-1, 101} {
		_, err = c.UpdateProgress(ctx, enrollment.ID, bad)
		require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)
	}
	require.EqualValues(t, 1, hub.Hits(http.MethodPatch, path))
}

func TestPaymentsAndOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, srv, _ := startHub(t, fakehub.Options{})
	c, _ := loggedIn(t, srv)

	intent, err := c.CreatePayment(ctx, 2)
	require.NoError(t, err)
	require.NotZero(t, intent.OrderID)
	require.NotEmpty(t, intent.ClientSecret)

	status, err := c.VerifyPayment(ctx, intent.OrderID)
	require.NoError(t, err)
	require.Equal(t, "success", status.Status)

	history, err := c.PaymentHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "completed", history[0].Status)
	require.Equal(t, "79.00", history[0].Amount)

	orders, err := c.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "Intermediate Grammar", orders[0].Course.Title)

	// A verified payment enrolls the buyer.
	mine, err := c.MyEnrollments(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.EqualValues(t, 2, mine[0].Course)

	_, err = c.VerifyPayment(ctx, 0)
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)
}

func TestProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, srv, _ := startHub(t, fakehub.Options{})
	c, _ := loggedIn(t, srv)

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "free", profile.SubscriptionType)

	bio := "J'apprends le français."
	first := "Marie"
	profile, err = c.UpdateProfile(ctx, hubsdk.ProfileUpdate{Bio: &bio, FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, bio, profile.Bio)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "Marie", me.FirstName)
}

func TestLiveSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, userID := startHub(t, fakehub.Options{})
	c, _ := loggedIn(t, srv)

	soon := hub.AddLiveSession(userID, 1, time.Now().Add(2*time.Hour))
	hub.AddLiveSession(userID, 1, time.Now().Add(-48*time.Hour))

	upcoming, err := c.UpcomingSessions(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, soon, upcoming[0].ID)
	require.Empty(t, upcoming[0].MeetingURL)

	joined, err := c.JoinLiveSession(ctx, soon)
	require.NoError(t, err)
	require.NotEmpty(t, joined.MeetingURL)
	require.Equal(t, "in_progress", joined.Status)

	got, err := c.GetLiveSession(ctx, soon)
	require.NoError(t, err)
	require.Equal(t, joined.MeetingURL, got.MeetingURL)

	_, err = c.GetLiveSession(ctx, 12345)
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestServerHTMLErrorThroughTypedCall(t *testing.T) {
	t.Parallel()
	hub, srv, _ := startHub(t, fakehub.Options{})
	c := newClient(t, srv.URL, newStore(t, srv.URL))

	hub.Override(http.MethodGet, hubsdk.PathCourses, http.StatusBadGateway, "text/html", "<h1>Bad Gateway</h1>")

	_, err := c.ListCourses(context.Background(), hubsdk.CourseFilter{})
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	require.True(t, httpErr.Fallback)
	require.JSONEq(t, `{"detail":"<h1>Bad Gateway</h1>"}`, string(httpErr.Data))

	hub.ClearOverrides()
	_, err = c.ListCourses(context.Background(), hubsdk.CourseFilter{})
	require.NoError(t, err)
}

func TestLogout_FreshJarFetchesCSRFWithoutRefreshing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})
	first, _ := loggedIn(t, srv)

	access, err := first.Credentials().AccessToken(ctx)
	require.NoError(t, err)
	refresh, err := first.Credentials().RefreshToken(ctx)
	require.NoError(t, err)

	// A second process: same tokens, empty cookie jar, expired access token.
	st := newStore(t, srv.URL)
	require.NoError(t, st.SetTokens(ctx, access, refresh))
	c := newClient(t, srv.URL, st)
	hub.RevokeAccessTokens()

	require.NoError(t, c.Logout(ctx))
	require.EqualValues(t, 1, hub.Hits(http.MethodPost, hubsdk.PathLogout))
	require.EqualValues(t, 1, hub.Hits(http.MethodGet, hubsdk.PathCourses))
	require.Zero(t, hub.RefreshCalls())
	require.Zero(t, hub.SyncCalls())

	csrf, ok := st.Cookie(hubsdk.CookieCSRF)
	require.True(t, ok)
	require.NotEmpty(t, csrf)

	ok, err = c.IsAuthenticated(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}


func TestAccountEnrollments_NewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub, srv, _ := startHub(t, fakehub.Options{})
	c, _ := loggedIn(t, srv)

	mine, err := c.AccountEnrollments(ctx)
	require.NoError(t, err)
	require.Empty(t, mine)

	_, err = c.Enroll(ctx, 1)
	require.NoError(t, err)
	_, err = c.Enroll(ctx, 3)
	require.NoError(t, err)

	mine, err = c.AccountEnrollments(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.EqualValues(t, 3, mine[0].Course)
	require.EqualValues(t, 1, mine[1].Course)
	require.EqualValues(t, 2, hub.Hits(http.MethodGet, hubsdk.PathMyEnrollments))
}
