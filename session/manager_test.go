package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/session"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/users"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLogin_StoresSessionAndGoesHome(t *testing.T) {
	f := setupTestFixture(t)

	route, err := f.manager.Login(context.Background(), testEmail, testPassword)

	require.NoError(t, err)
	require.Equal(t, session.DefaultHomePath, route)
	require.Equal(t, []string{session.DefaultHomePath}, f.router.History())

	require.Equal(t, "validateur", f.store.Get(tokenstore.UserRole))
	require.Equal(t, testEmail, f.store.Get(tokenstore.UserName))
	require.Equal(t, tokenstore.FormatMillis(testNow), f.store.Get(tokenstore.LastActivity))
	expiry, ok := tokenstore.Expiry(f.store)
	require.True(t, ok)
	require.Equal(t, testNow.Add(time.Hour).Unix(), expiry.Unix())
	requireKeys(t, f.store, []tokenstore.Key{tokenstore.AccessToken, tokenstore.RefreshToken}, nil)

	role, name := f.manager.CurrentUser()
	require.Equal(t, users.RoleValidateur, role)
	require.Equal(t, testEmail, name)
}

func TestLogin_ResumesIntendedRoute(t *testing.T) {
	f := setupTestFixture(t)

	require.False(t, f.manager.RequireAuth("/Dossiers"))
	require.Equal(t, "/login", f.router.CurrentPath())

	route, err := f.manager.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, "/Dossiers", route)
	require.Equal(t, "/Dossiers", f.router.CurrentPath())
	require.Empty(t, f.store.Get(tokenstore.IntendedRoute))
	require.True(t, f.manager.RequireAuth("/Temoins"))
}

func TestLogin_BadCredentialsStoreNothing(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Login(context.Background(), testEmail, "wrong")

	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Empty(t, f.store.Snapshot())
	require.Empty(t, f.router.History())
}

func TestLogin_UndecodableAccessTokenStoresNothing(t *testing.T) {
	f := setupTestFixture(t)
	f.obtainer.access = "opaque-token"

	_, err := f.manager.Login(context.Background(), testEmail, testPassword)

	require.ErrorIs(t, err, apperrors.ErrMalformedToken)
	require.Empty(t, f.store.Snapshot())
}

func TestLogout_ExplicitClearsEverythingAndLeavesMessage(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.manager.SetActiveMenuItem("/Temoins")
	f.store.Set(tokenstore.IntendedRoute, "/Dossiers")

	f.manager.Logout()

	requireKeys(t, f.store, nil, []tokenstore.Key{
		tokenstore.AccessToken, tokenstore.RefreshToken, tokenstore.UserRole, tokenstore.UserName,
		tokenstore.ActiveMenuItem, tokenstore.TokenExpiry, tokenstore.LastActivity,
	})
	require.Equal(t, "/Dossiers", f.store.Get(tokenstore.IntendedRoute))
	require.Equal(t, []string{"/login"}, f.router.History())
	require.Equal(t, session.MessageLoggedOut, f.manager.TakeLogoutMessage())
	require.Empty(t, f.manager.TakeLogoutMessage(), "message is consumed once")
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Logouts.WithLabelValues(session.LogoutExplicit)))
}

// The silent logout deliberately clears less than the explicit one: role, user name and
// menu state survive, and no message is left for the login screen.
func TestLogout_SilentClearsOnlyTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.manager.SetActiveMenuItem("/Temoins")

	f.manager.SilentLogout()

	requireKeys(t, f.store,
		[]tokenstore.Key{tokenstore.UserRole, tokenstore.UserName, tokenstore.ActiveMenuItem, tokenstore.TokenExpiry, tokenstore.LastActivity},
		[]tokenstore.Key{tokenstore.AccessToken, tokenstore.RefreshToken, tokenstore.LogoutMessage},
	)
	require.Equal(t, []string{"/login"}, f.router.History())
}

func TestExpireSession_ClearsSessionWithMessage(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.manager.SetActiveMenuItem("/Temoins")
	f.store.Set(tokenstore.IntendedRoute, "/Dossiers")

	f.manager.ExpireSession(apperrors.ErrRefreshFailed)

	requireKeys(t, f.store,
		[]tokenstore.Key{tokenstore.IntendedRoute, tokenstore.ActiveMenuItem},
		tokenstore.SessionKeys,
	)
	require.Equal(t, session.MessageSessionExpired, f.store.Get(tokenstore.LogoutMessage))
	require.Equal(t, []string{"/login"}, f.router.History())
}

func TestLogout_NoRedirectWhenAlreadyOnLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.router.Navigate("/login")

	f.manager.ExpireSession(apperrors.ErrRefreshFailed)
	f.manager.SilentLogout()
	f.manager.Logout()

	require.Equal(t, []string{"/login"}, f.router.History(), "only the manual navigation")
	require.Empty(t, f.store.Get(tokenstore.AccessToken))
}

func TestLogout_RepeatedLogoutNavigatesOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.manager.SilentLogout()
	f.manager.SilentLogout()

	require.Equal(t, []string{"/login"}, f.router.History())
}

func TestLogout_ConcurrentLogoutsNavigateOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				f.manager.SilentLogout()
				return
			}
			f.manager.ExpireSession(apperrors.ErrRefreshFailed)
		}(i)
	}
	wg.Wait()

	require.Equal(t, []string{"/login"}, f.router.History())
	require.Empty(t, f.store.Get(tokenstore.AccessToken))
}

// An expiry arriving while a silent logout is still navigating must still clear the
// whole session and leave its message.
func TestExpireSession_DuringSilentLogoutStillClears(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.router.OnNavigate(func(string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.manager.SilentLogout()
	}()
	<-entered

	f.manager.ExpireSession(apperrors.ErrRefreshFailed)
	close(release)
	<-done

	requireKeys(t, f.store, nil, tokenstore.SessionKeys)
	require.Equal(t, session.MessageSessionExpired, f.manager.TakeLogoutMessage())
	require.Equal(t, []string{"/login"}, f.router.History())
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Logouts.WithLabelValues(session.LogoutExpired)))
}

func TestRequireRole(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.manager.RequireRole(users.RoleValidateur), "no role before login")

	f.login(t)

	require.True(t, f.manager.RequireRole(users.RoleSuperAdmin, users.RoleValidateur))
	require.False(t, f.manager.RequireRole(users.RoleSuperAdmin))
	require.False(t, f.manager.RequireRole())
}

func TestActiveMenuItem(t *testing.T) {
	f := setupTestFixture(t)
	require.Empty(t, f.manager.ActiveMenuItem())
	f.manager.SetActiveMenuItem("/Dossiers")
	require.Equal(t, "/Dossiers", f.manager.ActiveMenuItem())
}
