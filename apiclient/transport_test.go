package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/temoins-console/apiclient"
	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/internal/metrics"
	"github.com/jrsteele09/temoins-console/token"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/jrsteele09/temoins-console/token/refresh"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/tokenstore/memstore"
	"github.com/jrsteele09/temoins-console/users"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const testRefreshToken = "refresh-1"

// fakeBackend accepts one access token at a time and mints a new one on refresh.
type fakeBackend struct {
	t       *testing.T
	server  *httptest.Server
	creator *jwt.Creator

	mu           sync.Mutex
	validToken   string
	nextToken    string
	alwaysReject bool

	refreshStatus int           // non-zero: refresh endpoint answers with this status
	refreshGate   chan struct{} // when set, refresh waits for it to close
	seenAuth      []string

	refreshCalls atomic.Int32
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) auths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seenAuth...)
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		t:       t,
		creator: jwt.NewCreator(token.NewHMACSigner("secret"), time.Hour, 24*time.Hour),
	}
	b.nextToken = b.mint()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/refresh/", b.handleRefresh)
	mux.HandleFunc("/api/", b.handleProtected)
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) mint() string {
	raw, err := b.creator.CreateAccessToken(&users.User{ID: "u-1", Email: "jane@example.com", Role: users.RoleValidateur})
	require.NoError(b.t, err)
	return raw
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	b.mu.Lock()
	gate, status := b.refreshGate, b.refreshStatus
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
		return
	}
	var body struct {
		Refresh string `json:"refresh"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Refresh != testRefreshToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	b.mu.Lock()
	b.validToken = b.nextToken
	access := b.validToken
	b.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]string{"access": access})
}

func (b *fakeBackend) handleProtected(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	b.mu.Lock()
	b.seenAuth = append(b.seenAuth, auth)
	ok := !b.alwaysReject && b.validToken != "" && auth == "Bearer "+b.validToken
	b.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/boom/"):
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	case !ok:
		http.Error(w, `{"detail":"Given token not valid for any token type"}`, http.StatusUnauthorized)
	default:
		body, _ := io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path, "body": string(body)})
	}
}

type fakeTerminator struct {
	mu     sync.Mutex
	causes []error
}

func (f *fakeTerminator) ExpireSession(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.causes = append(f.causes, cause)
}

func (f *fakeTerminator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.causes)
}

type testFixture struct {
	backend     *fakeBackend
	store       *memstore.MemStore
	coordinator *refresh.Coordinator
	terminator  *fakeTerminator
	metrics     *metrics.Metrics
	client      *apiclient.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := newFakeBackend(t)
	store := memstore.New()
	store.Set(tokenstore.AccessToken, "expired-access")
	store.Set(tokenstore.RefreshToken, testRefreshToken)

	authAPI, err := apiclient.NewAuthAPI(backend.server.URL, backend.server.Client())
	require.NoError(t, err)

	m := metrics.Nop()
	coordinator := refresh.NewCoordinator(store, authAPI)
	terminator := &fakeTerminator{}
	transport := apiclient.NewTransport(store, coordinator, terminator,
		apiclient.WithBase(backend.server.Client().Transport),
		apiclient.WithMetrics(m),
	)
	client, err := apiclient.New(backend.server.URL, transport)
	require.NoError(t, err)

	return &testFixture{
		backend:     backend,
		store:       store,
		coordinator: coordinator,
		terminator:  terminator,
		metrics:     m,
		client:      client,
	}
}

func TestTransport_AttachesBearerAndRecordsActivity(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.set(func(b *fakeBackend) { b.validToken = "good-access" })
	f.store.Set(tokenstore.AccessToken, "good-access")

	now := time.UnixMilli(1792324800000)
	apiclient.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { apiclient.NowTimeFunc = time.Now })

	var out map[string]string
	require.NoError(t, f.client.GetJSON(context.Background(), "/api/superadmin/temoins/", &out))

	require.Equal(t, "/api/superadmin/temoins/", out["path"])
	require.Equal(t, []string{"Bearer good-access"}, f.backend.auths())
	require.Equal(t, tokenstore.FormatMillis(now), f.store.Get(tokenstore.LastActivity))
	require.Equal(t, int32(0), f.backend.refreshCalls.Load())
}

func TestTransport_NoTokenSendsNoHeaderButRecordsActivity(t *testing.T) {
	f := setupTestFixture(t)
	f.store.Clear(tokenstore.AccessToken)
	f.store.Clear(tokenstore.RefreshToken)

	resp, err := f.client.Do(mustRequest(t, f.client, http.MethodGet, "api/boom/"))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{""}, f.backend.auths())
	require.NotEmpty(t, f.store.Get(tokenstore.LastActivity))
}

func TestTransport_RefreshesAndRetriesOnce(t *testing.T) {
	f := setupTestFixture(t)

	var out map[string]string
	require.NoError(t, f.client.GetJSON(context.Background(), "api/geographic-data/regions/", &out))

	require.Equal(t, int32(1), f.backend.refreshCalls.Load())
	require.Equal(t, []string{"Bearer expired-access", "Bearer " + f.backend.nextToken}, f.backend.auths())
	require.Equal(t, f.backend.nextToken, f.store.Get(tokenstore.AccessToken))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Retries))
	require.Zero(t, f.terminator.count())
}

func TestTransport_ConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	const requests = 6
	f := setupTestFixture(t)
	gate := make(chan struct{})
	f.backend.set(func(b *fakeBackend) { b.refreshGate = gate })

	var wg sync.WaitGroup
	errs := make([]error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.client.GetJSON(context.Background(), "api/superadmin/temoins/", nil)
		}(i)
	}

	require.Eventually(t, func() bool { return f.coordinator.Waiters() == requests }, 2*time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), f.backend.refreshCalls.Load())
	require.Zero(t, f.terminator.count())
}

func TestTransport_SecondUnauthorizedIsReturned(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.set(func(b *fakeBackend) { b.alwaysReject = true })

	resp, err := f.client.Do(mustRequest(t, f.client, http.MethodGet, "api/superadmin/temoins/"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(1), f.backend.refreshCalls.Load())
	require.Len(t, f.backend.auths(), 2)
	require.Zero(t, f.terminator.count())

	err = f.client.GetJSON(context.Background(), "api/superadmin/temoins/", nil)
	var statusErr *apiclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestTransport_RefreshFailureExpiresSession(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.set(func(b *fakeBackend) { b.refreshStatus = http.StatusUnauthorized })

	err := f.client.GetJSON(context.Background(), "api/superadmin/temoins/", nil)

	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	require.Equal(t, 1, f.terminator.count())
	require.ErrorIs(t, f.terminator.causes[0], apperrors.ErrRefreshFailed)
	require.Len(t, f.backend.auths(), 1, "no retry after a failed refresh")
}

func TestTransport_MissingRefreshTokenExpiresSession(t *testing.T) {
	f := setupTestFixture(t)
	f.store.Clear(tokenstore.RefreshToken)

	err := f.client.GetJSON(context.Background(), "api/superadmin/temoins/", nil)

	require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	require.Equal(t, int32(0), f.backend.refreshCalls.Load())
	require.Equal(t, 1, f.terminator.count())
}

func TestTransport_OtherStatusesPassThrough(t *testing.T) {
	f := setupTestFixture(t)

	err := f.client.GetJSON(context.Background(), "api/boom/", nil)

	var statusErr *apiclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, "boom", statusErr.Detail())
	require.Equal(t, int32(0), f.backend.refreshCalls.Load())
}

func TestTransport_NetworkErrorPassesThrough(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.server.Close()

	err := f.client.GetJSON(context.Background(), "api/superadmin/temoins/", nil)

	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Zero(t, f.terminator.count())
}

func TestTransport_ReplaysBodyOnRetry(t *testing.T) {
	f := setupTestFixture(t)

	var out map[string]string
	err := f.client.PostJSON(context.Background(), "api/superadmin/temoins/", map[string]string{"commune": "Lyon"}, &out)

	require.NoError(t, err)
	require.JSONEq(t, `{"commune":"Lyon"}`, out["body"])
}

func TestTransport_UnreplayableBodyReturnsUnauthorized(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.client.URL("api/superadmin/temoins/"), io.NopCloser(strings.NewReader("{}")))
	require.NoError(t, err)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(0), f.backend.refreshCalls.Load())
}

func mustRequest(t *testing.T, c *apiclient.Client, method, path string) *http.Request {
	t.Helper()
	req, err := c.NewRequest(context.Background(), method, path, nil)
	require.NoError(t, err)
	return req
}
