package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/internal/fakehub"
	"github.com/frenchtutorhub/hub/internal/hubctl/app"
	"github.com/frenchtutorhub/hub/internal/hubctl/commands"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// cli runs hubctl invocations against one fake backend, sharing a sqlite
// credential file between them like separate processes would.
type cli struct {
	t      *testing.T
	hub    *fakehub.Hub
	cfg    app.Config
	userID int64
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	hub, srv, err := fakehub.Start(fakehub.Options{})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &cli{
		t:      t,
		hub:    hub,
		userID: hub.AddUser("marie", "motdepasse"),
		cfg: app.Config{
			BaseURL:      srv.URL,
			Store:        app.StoreSQLite,
			DatabaseFile: filepath.Join(t.TempDir(), "credentials.db"),
			Profile:      "test",
			SessionSync:  true,
			Timeout:      5 * time.Second,
			Env:          "test",
			LogLevel:     "error",
			LogFormat:    "text",
		},
	}
}

func (c *cli) runWithInput(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := commands.NewRootCMD(commands.WithConfig(func() app.Config { return c.cfg }))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	return c.runWithInput("", args...)
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "hubctl %s\n%s", strings.Join(args, " "), out)
	return out
}

func (c *cli) login() {
	c.t.Helper()
	c.mustRun("login", "-u", "marie", "-p", "motdepasse")
}

var numberAfter = func(label string) *regexp.Regexp {
	return regexp.MustCompile(label + `\s+(\d+)`)
}

func extractID(t *testing.T, re *regexp.Regexp, out string) int64 {
	t.Helper()
	m := re.FindStringSubmatch(out)
	require.Len(t, m, 2, "no id in output:\n%s", out)
	id, err := strconv.ParseInt(m[1], 10, 64)
	require.NoError(t, err)
	return id
}

func TestLoginStatusLogout(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out := c.mustRun("status")
	require.Contains(t, out, "Not logged in")

	out = c.mustRun("login", "-u", "marie", "-p", "motdepasse")
	require.Contains(t, out, "Logged in as marie")

	out = c.mustRun("status")
	require.Contains(t, out, "Logged in, access token valid")
	require.Contains(t, out, "Refreshable: true")
	require.Contains(t, out, strconv.FormatInt(c.userID, 10))

	out = c.mustRun("whoami")
	require.Contains(t, out, "marie@example.com")
	require.Contains(t, out, "student")

	out = c.mustRun("logout")
	require.Contains(t, out, "Logged out")
	require.EqualValues(t, 1, c.hub.LogoutCalls())

	out = c.mustRun("status")
	require.Contains(t, out, "Not logged in")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out, err := c.runWithInput("motdepasse\n", "login", "-u", "marie")
	require.NoError(t, err, out)
	require.Contains(t, out, "Password:")
	require.Contains(t, out, "Logged in as")
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	_, err := c.run("login", "-u", "marie", "-p", "wrong")
	require.Error(t, err)
	require.NotErrorIs(t, err, hubsdk.ErrAuthExpired)
	require.Contains(t, commands.FormatError(err), "No active account found")
}

func TestNotLoggedIn(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	_, err := c.run("whoami")
	require.ErrorIs(t, err, hubsdk.ErrAuthExpired)
	require.Contains(t, commands.FormatError(err), "hubctl login")
}

func TestExpiredAccessTokenIsRefreshedInNextInvocation(t *testing.T) {
	t.Parallel()
	c := newCLI(t)
	c.login()

	c.hub.RevokeAccessTokens()

	out := c.mustRun("whoami")
	require.Contains(t, out, "marie")
	require.EqualValues(t, 1, c.hub.RefreshCalls())
	require.EqualValues(t, 1, c.hub.SyncCalls())
	require.NotEmpty(t, c.hub.LastSync().CSRF)

	// The refreshed token was persisted: no second refresh.
	c.mustRun("whoami")
	require.EqualValues(t, 1, c.hub.RefreshCalls())
}

func TestCourses(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out := c.mustRun("courses", "list")
	require.Contains(t, out, "French for Beginners")
	require.Contains(t, out, "Business French")
	require.Contains(t, out, "TITLE")

	out = c.mustRun("courses", "list", "--level", "advanced")
	require.NotContains(t, out, "French for Beginners")
	require.Contains(t, out, "DELF B2 Preparation")

	out = c.mustRun("courses", "list", "--search", "nothing-matches-this")
	require.Contains(t, out, "No courses found")

	out = c.mustRun("courses", "featured", "--limit", "2")
	require.Contains(t, out, "French for Beginners")
	require.Contains(t, out, "Intermediate Grammar")
	require.NotContains(t, out, "DELF B2 Preparation")

	out = c.mustRun("courses", "show", "3")
	require.Contains(t, out, "Business French")
	require.Contains(t, out, "Luc Bernard")
	require.Contains(t, out, "Meetings, email and negotiation.")

	_, err := c.run("courses", "show", "abc")
	require.ErrorContains(t, err, "invalid course id")

	_, err = c.run("courses", "show", "99")
	var httpErr *hubsdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, "server answered 404: Not found.", commands.FormatError(err))
}

func TestEnrollmentFlow(t *testing.T) {
	t.Parallel()
	c := newCLI(t)
	c.login()

	_, err := c.run("courses", "content", "1")
	require.ErrorContains(t, err, "not enrolled")

	out := c.mustRun("enroll", "1")
	require.Contains(t, out, "Enrolled in French for Beginners")
	enrollmentID := extractID(t, regexp.MustCompile(`enrollment (\d+)`), out)

	_, err = c.run("enroll", "1")
	require.ErrorContains(t, err, "already enrolled")

	out = c.mustRun("enrollments")
	require.Contains(t, out, "French for Beginners")
	require.Contains(t, out, "0%")
	require.Contains(t, out, "active")

	out = c.mustRun("progress", strconv.FormatInt(enrollmentID, 10), "40")
	require.Contains(t, out, "is now 40%")

	_, err = c.run("progress", strconv.FormatInt(enrollmentID, 10), "150")
	require.ErrorIs(t, err, hubsdk.ErrInvalidArgument)

	out = c.mustRun("courses", "content", "1")
	require.Contains(t, out, "Workbook")
	require.Contains(t, out, "video")
}

func TestPayments(t *testing.T) {
	t.Parallel()
	c := newCLI(t)
	c.login()

	out := c.mustRun("payments", "history")
	require.Contains(t, out, "No payments yet")

	out = c.mustRun("payments", "create", "2")
	require.Contains(t, out, "Payment created")
	orderID := extractID(t, numberAfter("Order:"), out)

	out = c.mustRun("payments", "verify", strconv.FormatInt(orderID, 10))
	require.Contains(t, out, fmt.Sprintf("Payment %d confirmed", orderID))

	out = c.mustRun("payments", "history")
	require.Contains(t, out, "completed")
	require.Contains(t, out, "79.00")

	out = c.mustRun("orders")
	require.Contains(t, out, "Intermediate Grammar")

	// Paying enrolls.
	out = c.mustRun("enrollments")
	require.Contains(t, out, "Intermediate Grammar")
}

func TestLiveSessions(t *testing.T) {
	t.Parallel()
	c := newCLI(t)
	c.login()

	out := c.mustRun("live", "upcoming")
	require.Contains(t, out, "No upcoming sessions")

	id := c.hub.AddLiveSession(c.userID, 1, time.Now().Add(2*time.Hour))
	sid := strconv.FormatInt(id, 10)

	out = c.mustRun("live", "upcoming")
	require.Contains(t, out, sid)
	require.Contains(t, out, "zoom")

	out = c.mustRun("live", "show", sid)
	require.Contains(t, out, "scheduled")
	require.NotContains(t, out, "Meeting:")

	out = c.mustRun("live", "join", sid)
	require.Contains(t, out, "Joined session "+sid)
	require.Contains(t, out, "https://zoom.example/j/")
	require.Contains(t, out, "in_progress")
}

func TestUnknownStore(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	_, err := c.run("--store", "etcd", "status")
	require.ErrorContains(t, err, `unknown credential store "etcd"`)
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "expired",
			err:  &hubsdk.HTTPError{StatusCode: 401, Message: "Given token not valid for any token type"},
			want: "not logged in or session expired, run hubctl login",
		},
		{
			name: "network",
			err:  &hubsdk.NetworkError{Method: "GET", URL: "http://hub.test/api/courses/", Err: errors.New("connection refused")},
			want: "cannot reach http://hub.test/api/courses/: connection refused",
		},
		{
			name: "detail",
			err:  &hubsdk.HTTPError{StatusCode: 403, Message: "You are not enrolled in this course."},
			want: "server answered 403: You are not enrolled in this course.",
		},
		{
			name: "field errors",
			err: &hubsdk.HTTPError{
				StatusCode: 400,
				Message:    "API request failed with status: 400",
				Data:       []byte(`{"progress": ["Ensure this value is less than or equal to 100."]}`),
			},
			want: "server answered 400: API request failed with status: 400 (progress: Ensure this value is less than or equal to 100.)",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, commands.FormatError(tt.err))
		})
	}
}

func TestLogoutWithExpiredTokenDoesNotRefresh(t *testing.T) {
	t.Parallel()
	c := newCLI(t)
	c.login()

	c.hub.RevokeAccessTokens()

	out := c.mustRun("logout")
	require.Contains(t, out, "Logged out")
	require.EqualValues(t, 1, c.hub.Hits(http.MethodPost, hubsdk.PathLogout))
	require.Zero(t, c.hub.RefreshCalls())
	require.Zero(t, c.hub.SyncCalls())

	out = c.mustRun("status")
	require.Contains(t, out, "Not logged in")
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out := c.mustRun("profiles", "list")
	require.Contains(t, out, "No stored profiles")

	c.login()
	c.mustRun("--profile", "staging", "login", "-u", "marie", "-p", "motdepasse")

	out = c.mustRun("profiles", "list")
	require.Regexp(t, `\*\s+test`, out)
	require.Contains(t, out, "staging")

	out = c.mustRun("profiles", "delete", "staging")
	require.Contains(t, out, "Deleted profile staging")

	out = c.mustRun("profiles", "list")
	require.NotContains(t, out, "staging")

	out = c.mustRun("profiles", "delete", "staging")
	require.Contains(t, out, "has no stored credentials")

	out = c.mustRun("--profile", "staging", "status")
	require.Contains(t, out, "Not logged in")

	// Other profiles are untouched.
	out = c.mustRun("status")
	require.Contains(t, out, "Logged in, access token valid")

	_, err := c.run("--store", "memory", "profiles", "list")
	require.ErrorIs(t, err, app.ErrProfilesUnsupported)
}
