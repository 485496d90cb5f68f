package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/internal/metrics"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Exchanger performs the refresh network call: it trades a refresh token for a new
// access token.
type Exchanger interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
}

// State of the coordinator
type State int

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// call is one refresh network call and its outcome, shared by every caller that asked
// for a refresh while it was running.
type call struct {
	done    chan struct{}
	token   *oauth2.Token
	err     error
	waiters int
}

// Coordinator collapses concurrent refresh requests into a single network call.
//
// It moves Idle -> Refreshing when a caller asks for a refresh and none is pending, and
// back to Idle once that call settles, whatever its outcome. Callers arriving while
// Refreshing wait for the pending call instead of starting another one.
type Coordinator struct {
	store     tokenstore.Store
	exchanger Exchanger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	pending *call // nil while Idle
}

type Option func(*Coordinator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates a refresh coordinator over store
func NewCoordinator(store tokenstore.Store, exchanger Exchanger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		exchanger: exchanger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop()
	}
	return c
}

// State reports whether a refresh is in flight
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return StateRefreshing
	}
	return StateIdle
}

// Waiters returns the number of callers attached to the in-flight refresh, 0 when Idle
func (c *Coordinator) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0
	}
	return c.pending.waiters
}

// Refresh returns a fresh access token. If a refresh is already running the caller waits
// for its outcome. All callers of one refresh observe the same token or the same error.
//
// The network call is not tied to ctx: cancelling ctx only stops this caller from waiting,
// the refresh carries on for the others.
func (c *Coordinator) Refresh(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	if cl := c.pending; cl != nil {
		cl.waiters++
		c.mu.Unlock()
		c.metrics.Refreshes.WithLabelValues(metrics.OutcomeShared).Inc()
		return wait(ctx, cl)
	}

	refreshToken := c.store.Get(tokenstore.RefreshToken)
	if refreshToken == "" {
		c.mu.Unlock()
		c.metrics.Refreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, apperrors.ErrNoRefreshToken)
	}

	cl := &call{done: make(chan struct{}), waiters: 1}
	c.pending = cl
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), cl, refreshToken)
	return wait(ctx, cl)
}

func (c *Coordinator) run(ctx context.Context, cl *call, refreshToken string) {
	var (
		tok *oauth2.Token
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			tok, err = nil, fmt.Errorf("%w: panic during refresh: %v", apperrors.ErrRefreshFailed, r)
		}
		if err != nil {
			c.metrics.Refreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		} else {
			c.metrics.Refreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()
		}

		c.mu.Lock()
		cl.token, cl.err = tok, err
		c.pending = nil
		waiters := cl.waiters
		c.mu.Unlock()
		close(cl.done)

		if err != nil {
			log.Warn().Err(err).Int("waiters", waiters).Msg("token refresh failed")
			return
		}
		log.Debug().Int("waiters", waiters).Time("expiry", tok.Expiry).Msg("access token refreshed")
	}()

	tok, err = c.exchange(ctx, refreshToken)
}

// exchange calls the backend and, on success only, records the new token.
func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	access, err := c.exchanger.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}

	claims, err := jwt.Decode(access)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}

	c.store.Set(tokenstore.AccessToken, access)
	c.store.Set(tokenstore.TokenExpiry, tokenstore.FormatExpiry(claims.Exp))
	tokenstore.Touch(c.store, NowTimeFunc())

	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		Expiry:       claims.Exp,
	}, nil
}

func wait(ctx context.Context, cl *call) (*oauth2.Token, error) {
	select {
	case <-cl.done:
		return cl.token, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
