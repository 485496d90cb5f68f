package session

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/temoins-console/apiclient"
	"github.com/jrsteele09/temoins-console/internal/metrics"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/users"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	MessageLoggedOut      = "Vous avez été déconnecté avec succès."
	MessageSessionExpired = "Votre session a expiré. Veuillez vous reconnecter."

	DefaultLoginPath = "/login"
	DefaultHomePath  = "/Autorisation"
)

// Logout kinds, as reported to metrics
const (
	LogoutExplicit = "explicit"
	LogoutSilent   = "silent"
	LogoutExpired  = "expired"
)

// TokenObtainer exchanges credentials for a token pair; see apiclient.AuthAPI.
type TokenObtainer interface {
	ObtainPair(ctx context.Context, email, password string) (*apiclient.TokenPair, error)
}

// Manager owns the session lifecycle: login, the three kinds of logout, and the route
// guards of the console.
type Manager struct {
	store     tokenstore.Store
	auth      TokenObtainer
	nav       Navigator
	loginPath string
	homePath  string
	metrics   *metrics.Metrics

	loggingOut atomic.Bool
}

var _ apiclient.SessionTerminator = (*Manager)(nil)

type Option func(*Manager)

// WithPaths sets the login route and the default route after login.
func WithPaths(loginPath, homePath string) Option {
	return func(m *Manager) {
		m.loginPath = loginPath
		m.homePath = homePath
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func NewManager(store tokenstore.Store, auth TokenObtainer, nav Navigator, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		auth:      auth,
		nav:       nav,
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.Nop()
	}
	return m
}

func (m *Manager) LoginPath() string {
	return m.loginPath
}

// Login authenticates with the backend and opens a session. Role and user name come from
// the access token payload. On success it navigates to the route saved by RequireAuth,
// or to the home route, and returns that route. Nothing is stored on failure.
func (m *Manager) Login(ctx context.Context, email, password string) (string, error) {
	pair, err := m.auth.ObtainPair(ctx, email, password)
	if err != nil {
		return "", err
	}

	claims, err := jwt.Decode(pair.Access)
	if err != nil {
		return "", err
	}

	m.store.Set(tokenstore.AccessToken, pair.Access)
	m.store.Set(tokenstore.RefreshToken, pair.Refresh)
	m.store.Set(tokenstore.TokenExpiry, tokenstore.FormatExpiry(claims.Exp))
	tokenstore.Touch(m.store, NowTimeFunc())
	m.store.Set(tokenstore.UserRole, claims.Role)
	m.store.Set(tokenstore.UserName, claims.Email)

	route := m.store.Get(tokenstore.IntendedRoute)
	if route == "" {
		route = m.homePath
	}
	m.store.Clear(tokenstore.IntendedRoute)

	log.Info().Str("user", claims.Email).Str("role", claims.Role).Msg("logged in")
	m.nav.Navigate(route)
	return route, nil
}

// Logout is the user initiated logout. It clears every session key including the role and
// menu state, and leaves a message for the login screen.
func (m *Manager) Logout() {
	m.terminate(LogoutExplicit, func() {
		for _, k := range []tokenstore.Key{
			tokenstore.AccessToken,
			tokenstore.RefreshToken,
			tokenstore.UserRole,
			tokenstore.UserName,
			tokenstore.ActiveMenuItem,
			tokenstore.TokenExpiry,
			tokenstore.LastActivity,
		} {
			m.store.Clear(k)
		}
		m.store.Set(tokenstore.LogoutMessage, MessageLoggedOut)
	})
}

// SilentLogout ends an expired or abandoned session. Only the two tokens are removed;
// role, user name and menu state stay, and no message is shown.
func (m *Manager) SilentLogout() {
	m.terminate(LogoutSilent, func() {
		m.store.Clear(tokenstore.AccessToken)
		m.store.Clear(tokenstore.RefreshToken)
	})
}

// ExpireSession ends the session after a failed token refresh. It implements
// apiclient.SessionTerminator.
func (m *Manager) ExpireSession(cause error) {
	log.Warn().Err(cause).Msg("session expired")
	m.terminate(LogoutExpired, func() {
		m.store.ClearSession()
		m.store.Set(tokenstore.LogoutMessage, MessageSessionExpired)
	})
}

// terminate runs clear and redirects to login. clear always runs, so a later, wider
// logout still takes effect; only the redirect is skipped while another logout is
// navigating.
func (m *Manager) terminate(kind string, clear func()) {
	clear()
	m.metrics.Logouts.WithLabelValues(kind).Inc()

	if !m.loggingOut.CompareAndSwap(false, true) {
		log.Debug().Str("kind", kind).Msg("logout already in progress")
		return
	}
	defer m.loggingOut.Store(false)
	m.redirectToLogin()
}

func (m *Manager) redirectToLogin() {
	if m.nav.CurrentPath() == m.loginPath {
		return
	}
	m.nav.Navigate(m.loginPath)
}

// IsAuthenticated reports whether an access token is stored.
func (m *Manager) IsAuthenticated() bool {
	return m.store.Get(tokenstore.AccessToken) != ""
}

// RequireAuth guards path: without an access token it remembers path for after the next
// login, sends the user to the login route and returns false.
func (m *Manager) RequireAuth(path string) bool {
	if m.IsAuthenticated() {
		return true
	}
	m.store.Set(tokenstore.IntendedRoute, path)
	m.nav.Navigate(m.loginPath)
	return false
}

// RequireRole reports whether the stored role is one of allowed.
func (m *Manager) RequireRole(allowed ...users.Role) bool {
	return slices.Contains(allowed, users.Role(m.store.Get(tokenstore.UserRole)))
}

// CurrentUser returns the role and user name recorded at login.
func (m *Manager) CurrentUser() (users.Role, string) {
	return users.Role(m.store.Get(tokenstore.UserRole)), m.store.Get(tokenstore.UserName)
}

// TakeLogoutMessage returns the pending logout message, if any, and removes it.
func (m *Manager) TakeLogoutMessage() string {
	msg := m.store.Get(tokenstore.LogoutMessage)
	if msg != "" {
		m.store.Clear(tokenstore.LogoutMessage)
	}
	return msg
}

func (m *Manager) SetActiveMenuItem(item string) {
	m.store.Set(tokenstore.ActiveMenuItem, item)
}

func (m *Manager) ActiveMenuItem() string {
	return m.store.Get(tokenstore.ActiveMenuItem)
}
