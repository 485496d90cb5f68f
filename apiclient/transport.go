package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/internal/metrics"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Refresher obtains a new access token; see refresh.Coordinator.
type Refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// SessionTerminator ends the session after an unrecoverable authorization failure.
type SessionTerminator interface {
	ExpireSession(cause error)
}

// Transport attaches the stored access token to every request, records the request as
// user activity and recovers once from a 401 by refreshing the access token.
type Transport struct {
	base       http.RoundTripper
	store      tokenstore.Store
	refresher  Refresher
	terminator SessionTerminator
	metrics    *metrics.Metrics
}

var _ http.RoundTripper = (*Transport)(nil)

type TransportOption func(*Transport)

// WithBase sets the underlying transport, http.DefaultTransport by default.
func WithBase(rt http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = rt
	}
}

func WithMetrics(m *metrics.Metrics) TransportOption {
	return func(t *Transport) {
		t.metrics = m
	}
}

func NewTransport(store tokenstore.Store, refresher Refresher, terminator SessionTerminator, opts ...TransportOption) *Transport {
	t := &Transport{
		base:       http.DefaultTransport,
		store:      store,
		refresher:  refresher,
		terminator: terminator,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = metrics.Nop()
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req, "")
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The body of the first attempt is spent; without GetBody it cannot be sent again.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Debug().Str("url", req.URL.String()).Msg("401 on a request that cannot be replayed")
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	tok, err := t.refresher.Refresh(req.Context())
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !apperrors.Is(err, apperrors.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
		}
		t.terminator.ExpireSession(err)
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		retry.Body = body
	}
	t.metrics.Retries.Inc()

	// Second attempt: whatever comes back, 401 included, goes to the caller.
	return t.send(retry, tok.AccessToken)
}

// send attaches credentials and records activity before handing req to the base
// transport. An empty accessToken means "use the stored one".
func (t *Transport) send(req *http.Request, accessToken string) (*http.Response, error) {
	if accessToken == "" {
		accessToken = t.store.Get(tokenstore.AccessToken)
	}

	out := req.Clone(req.Context())
	if accessToken != "" {
		out.Header.Set("Authorization", "Bearer "+accessToken)
	}
	tokenstore.Touch(t.store, NowTimeFunc())

	return t.base.RoundTrip(out)
}
