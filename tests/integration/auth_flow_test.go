package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jossiefancies/gatekeeper/internal/guard"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}

	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func TestLoginLogoutFlow(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "alice", "CorrectHorse9!", true, true)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	resp, sessionCookie, csrfCookie, err := ts.Login("alice", "CorrectHorse9!")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, sessionCookie, "expected a session cookie on success")
	require.NotNil(t, csrfCookie, "expected a CSRF cookie on success")
	assert.True(t, sessionCookie.HttpOnly)
	assert.False(t, csrfCookie.HttpOnly)

	var loginBody map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &loginBody))
	assert.Equal(t, "alice", loginBody["username"])
	assert.Equal(t, "/admin/dashboard", loginBody["redirect_url"])

	// Session cookie grants access to the protected surface
	dashResp, err := ts.RequestWithSession(http.MethodGet, "/admin/dashboard", nil, sessionCookie, csrfCookie)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, dashResp.StatusCode)

	var dash map[string]interface{}
	require.NoError(t, ParseJSONResponse(dashResp, &dash))
	assert.Equal(t, "alice", dash["username"])

	// Logout destroys the session
	logoutResp, err := ts.RequestWithSession(http.MethodPost, "/api/auth/logout", nil, sessionCookie, csrfCookie)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)
	logoutResp.Body.Close()

	afterResp, err := ts.RequestWithSession(http.MethodGet, "/admin/dashboard", nil, sessionCookie, csrfCookie)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, afterResp.StatusCode)
	afterResp.Body.Close()
}

func TestLoginWrongPassword(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "bob", "CorrectHorse9!", true, true)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	resp, sessionCookie, _, err := ts.Login("bob", "wrong-password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, sessionCookie, "no session cookie on failure")
	resp.Body.Close()

	// The failure lands in the attempt ledger
	_, attemptRepo, _ := InitializeRepositories(testDB.DB)
	count, err := attemptRepo.GetFailedCountByUsername(ctx, "bob", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoginUnknownUsername(t *testing.T) {
	resetTables(t)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	resp, _, _, err := ts.Login("nobody", "whatever-password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginRateLimitTripsAfterRepeatedFailures(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "carol", "CorrectHorse9!", true, true)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	for i := 0; i < 5; i++ {
		resp, _, _, err := ts.Login("carol", "wrong-password")
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "failure %d should pass through", i+1)
		resp.Body.Close()
	}

	resp, _, _, err := ts.Login("carol", "CorrectHorse9!")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	resp.Body.Close()
}

func TestLockedAccountRejectsCorrectPassword(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "dave", "CorrectHorse9!", true, true)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	// Drive the lockout ledger directly over the shared store so the
	// login rate limiter does not trip first.
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tracker := guard.NewLockoutTracker(ts.Store, guard.DefaultLockoutConfig(), logger)
	for i := 0; i < 5; i++ {
		tracker.RecordFailure(ctx, "203.0.113.9", "dave")
	}
	require.True(t, tracker.IsLocked(ctx, "dave"))

	resp, sessionCookie, _, err := ts.Login("dave", "CorrectHorse9!")
	require.NoError(t, err)
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.Nil(t, sessionCookie)
	resp.Body.Close()
}

func TestSuccessfulLoginClearsFailureLedger(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "erin", "CorrectHorse9!", true, true)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp, _, _, err := ts.Login("erin", "wrong-password")
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	resp, _, _, err := ts.Login("erin", "CorrectHorse9!")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Ledger cleared on success: three more failures do not lock
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tracker := guard.NewLockoutTracker(ts.Store, guard.DefaultLockoutConfig(), logger)
	assert.False(t, tracker.IsLocked(ctx, "erin"))
}

func TestIPAllowListBlocksUnlistedClient(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "frank", "CorrectHorse9!", true, true)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, []string{"203.0.113.0/24"})
	defer ts.Close()

	resp, _, _, err := ts.Login("frank", "CorrectHorse9!")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	_, err := SeedAdminUser(ctx, testDB.Pool, "grace", "CorrectHorse9!", true, false)
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	resp, _, _, err := ts.Login("grace", "CorrectHorse9!")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestMissingCredentialsRejected(t *testing.T) {
	resetTables(t)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	resp, err := ts.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	resetTables(t)

	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	resp, err := ts.Request(http.MethodGet, "/admin/dashboard", nil, map[string]string{
		"Content-Type": "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
