package session

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInactivityTimeout = time.Hour
	DefaultCheckInterval     = time.Hour
)

// SilentLogouter ends a session without a user facing message; see Manager.SilentLogout.
type SilentLogouter interface {
	SilentLogout()
}

// Monitor ends sessions whose access token has expired or whose user has been inactive
// for too long. It reads the store and the clock only and makes no network calls.
type Monitor struct {
	store              tokenstore.Store
	logout             SilentLogouter
	tracker            ActivityTracker
	inactivityTimeout  time.Duration
	expiryInterval     time.Duration
	inactivityInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type MonitorOption func(*Monitor)

// WithTracker attaches an activity tracker whose lifetime follows the monitor's.
func WithTracker(t ActivityTracker) MonitorOption {
	return func(m *Monitor) {
		m.tracker = t
	}
}

func WithInactivityTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.inactivityTimeout = d
	}
}

// WithCheckIntervals sets how often the expiry and inactivity checks run.
func WithCheckIntervals(expiry, inactivity time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.expiryInterval = expiry
		m.inactivityInterval = inactivity
	}
}

func NewMonitor(store tokenstore.Store, logout SilentLogouter, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store:              store,
		logout:             logout,
		inactivityTimeout:  DefaultInactivityTimeout,
		expiryInterval:     DefaultCheckInterval,
		inactivityInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start activates the monitor: it checks the token once, initialises lastActivity when
// absent, starts the activity tracker and schedules both periodic checks. Calling Start
// on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	m.CheckExpiry()
	if m.store.Get(tokenstore.LastActivity) == "" {
		tokenstore.Touch(m.store, NowTimeFunc())
	}
	if m.tracker != nil {
		m.tracker.Start()
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(2)
	go m.every(ctx, m.expiryInterval, m.CheckExpiry)
	go m.every(ctx, m.inactivityInterval, m.CheckInactivity)
}

// Stop cancels both checks and stops the tracker. It waits for a running check to
// return, so it must not be called from inside a check (for example from a navigation
// listener triggered by the logout); use `go m.Stop()` there. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.wg.Wait()
	if m.tracker != nil {
		m.tracker.Stop()
	}
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) every(ctx context.Context, interval time.Duration, check func() bool) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// CheckExpiry logs out when there is no access token, when it cannot be decoded, or when
// its exp claim is at or before now. It reports whether it logged out.
func (m *Monitor) CheckExpiry() bool {
	raw := m.store.Get(tokenstore.AccessToken)
	if raw == "" {
		m.logout.SilentLogout()
		return true
	}

	claims, err := jwt.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("stored access token cannot be decoded")
		m.logout.SilentLogout()
		return true
	}
	if claims.Expired(NowTimeFunc()) {
		log.Info().Err(apperrors.ErrAuthExpired).Time("exp", claims.Exp).Msg("logging out")
		m.logout.SilentLogout()
		return true
	}
	return false
}

// CheckInactivity logs out when the last recorded activity is at least the inactivity
// timeout ago. A missing or unreadable timestamp counts as activity now.
func (m *Monitor) CheckInactivity() bool {
	now := NowTimeFunc()
	last, ok := tokenstore.LastActivityTime(m.store)
	if !ok {
		last = now
	}
	if now.Sub(last) >= m.inactivityTimeout {
		log.Info().Time("last_activity", last).Msg("session inactive")
		m.logout.SilentLogout()
		return true
	}
	return false
}
