package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/temoins-console/internal/config"
	"github.com/jrsteele09/temoins-console/token"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/jrsteele09/temoins-console/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Server is a development stand-in for the témoins REST backend. It issues SimpleJWT
// style token pairs and serves a few protected sample endpoints.
type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	users    users.UserRepo
	signer   token.Signer
	revoked  token.RevokedTokenCache
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	creatorLock sync.RWMutex
	creator     *jwt.Creator
}

type Option func(*Server)

// WithRegistry exposes the server metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

func WithRevokedTokenCache(cache token.RevokedTokenCache) Option {
	return func(s *Server) {
		s.revoked = cache
	}
}

func New(c config.Config, userRepo users.UserRepo, opts ...Option) *Server {
	signer := token.NewHMACSigner(c.GetSigningSecret())
	s := &Server{
		env:     c.GetEnv(),
		mux:     http.NewServeMux(),
		users:   userRepo,
		signer:  signer,
		creator: jwt.NewCreator(signer, c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.revoked == nil {
		s.revoked = token.NewInMemoryRevokedTokenCache()
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "temoins_devserver",
		Name:      "token_requests_total",
		Help:      "Token endpoint requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	s.registry.MustRegister(s.requests)

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered route patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColours[method]; ok {
		return colour + paddedMethod + resetColour
	}
	return gray + paddedMethod + resetColour
}

// SetAccessTokenExpiry changes the lifetime of access tokens issued from now on. Tests
// use it to hand out tokens that expire almost immediately.
func (s *Server) SetAccessTokenExpiry(d time.Duration) {
	s.creatorLock.Lock()
	defer s.creatorLock.Unlock()
	s.creator.SetAccessExpiry(d)
}

// RevokeRefreshToken makes a refresh token unusable before its expiry.
func (s *Server) RevokeRefreshToken(rawToken string) error {
	claims, err := s.verify(rawToken, jwt.TokenTypeRefresh)
	if err != nil {
		return err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	jti, _ := claims["jti"].(string)
	return s.revoked.Add(jti, exp.Time)
}

// CleanupRevokedTokens drops revocations of tokens that have expired since.
func (s *Server) CleanupRevokedTokens() {
	s.revoked.Cleanup()
}

func (s *Server) issue(user *users.User) (access, refresh string, err error) {
	s.creatorLock.RLock()
	defer s.creatorLock.RUnlock()
	if access, err = s.creator.CreateAccessToken(user); err != nil {
		return "", "", err
	}
	if refresh, err = s.creator.CreateRefreshToken(user); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) issueAccess(user *users.User) (string, error) {
	s.creatorLock.RLock()
	defer s.creatorLock.RUnlock()
	return s.creator.CreateAccessToken(user)
}
