package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/temoins-console/apiclient"
	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/internal/metrics"
	"github.com/jrsteele09/temoins-console/session"
	"github.com/jrsteele09/temoins-console/token"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/tokenstore/memstore"
	"github.com/jrsteele09/temoins-console/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "Secret123"
)

var testNow = time.Unix(1792324800, 0)

// fakeObtainer plays the token obtain endpoint.
type fakeObtainer struct {
	creator *jwt.Creator
	user    *users.User
	err     error
	access  string // overrides the minted access token when set
}

func (f *fakeObtainer) ObtainPair(ctx context.Context, email, password string) (*apiclient.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	if email != f.user.Email || password != testPassword {
		return nil, apperrors.ErrInvalidCredentials
	}
	access := f.access
	if access == "" {
		var err error
		if access, err = f.creator.CreateAccessToken(f.user); err != nil {
			return nil, err
		}
	}
	refreshToken, err := f.creator.CreateRefreshToken(f.user)
	if err != nil {
		return nil, err
	}
	return &apiclient.TokenPair{Access: access, Refresh: refreshToken}, nil
}

type testFixture struct {
	store    *memstore.MemStore
	router   *session.Router
	obtainer *fakeObtainer
	metrics  *metrics.Metrics
	manager  *session.Manager
	creator  *jwt.Creator
}

// setupTestFixture pins every clock to testNow and builds a manager on an in-memory store.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	setNow(t, testNow)

	creator := jwt.NewCreator(token.NewHMACSigner("secret"), time.Hour, 24*time.Hour)
	obtainer := &fakeObtainer{
		creator: creator,
		user:    &users.User{ID: "u-1", Email: testEmail, Role: users.RoleValidateur},
	}
	store := memstore.New()
	router := session.NewRouter("/Temoins")
	m := metrics.Nop()

	return &testFixture{
		store:    store,
		router:   router,
		obtainer: obtainer,
		metrics:  m,
		manager:  session.NewManager(store, obtainer, router, session.WithMetrics(m)),
		creator:  creator,
	}
}

func setNow(t *testing.T, now time.Time) {
	t.Helper()
	session.NowTimeFunc = func() time.Time { return now }
	jwt.NowTimeFunc = func() time.Time { return now }
	apiclient.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() {
		session.NowTimeFunc = time.Now
		jwt.NowTimeFunc = time.Now
		apiclient.NowTimeFunc = time.Now
	})
}

// login opens a session through the manager and resets the navigation history.
func (f *testFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.manager.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	f.router = session.NewRouter(f.router.CurrentPath())
	f.manager = session.NewManager(f.store, f.obtainer, f.router, session.WithMetrics(f.metrics))
}

func (f *testFixture) mintAccess(t *testing.T, expiry time.Duration) string {
	t.Helper()
	creator := jwt.NewCreator(token.NewHMACSigner("secret"), expiry, time.Hour)
	raw, err := creator.CreateAccessToken(f.obtainer.user)
	require.NoError(t, err)
	return raw
}

func requireKeys(t *testing.T, store tokenstore.Store, present, absent []tokenstore.Key) {
	t.Helper()
	for _, k := range present {
		require.NotEmpty(t, store.Get(k), "expected %s to be set", k)
	}
	for _, k := range absent {
		require.Empty(t, store.Get(k), "expected %s to be cleared", k)
	}
}
