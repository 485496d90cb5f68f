package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/temoins-console/apiclient"
	"github.com/jrsteele09/temoins-console/internal/config"
	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/internal/metrics"
	"github.com/jrsteele09/temoins-console/session"
	"github.com/jrsteele09/temoins-console/token/refresh"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/tokenstore/filestore"
	"github.com/jrsteele09/temoins-console/tokenstore/memstore"
	"github.com/jrsteele09/temoins-console/tokenstore/redisstore"
	"github.com/prometheus/client_golang/prometheus"
)

// app is the console's session layer wired over one store.
type app struct {
	cfg      config.Config
	store    tokenstore.Store
	router   *session.Router
	manager  *session.Manager
	client   *apiclient.Client
	registry *prometheus.Registry
	out      io.Writer
	close    func() error
}

func newApp(ctx context.Context, cfg config.Config, baseTransport http.RoundTripper, out io.Writer) (*app, error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	router := session.NewRouter(cfg.GetHomePath())

	auth, err := apiclient.NewAuthAPI(cfg.GetAPIURL(), &http.Client{Transport: baseTransport})
	if err != nil {
		closeStore()
		return nil, err
	}
	manager := session.NewManager(store, auth, router,
		session.WithPaths(cfg.GetLoginPath(), cfg.GetHomePath()),
		session.WithMetrics(m),
	)
	coordinator := refresh.NewCoordinator(store, auth, refresh.WithMetrics(m))
	transport := apiclient.NewTransport(store, coordinator, manager,
		apiclient.WithBase(baseTransport),
		apiclient.WithMetrics(m),
	)
	client, err := apiclient.New(cfg.GetAPIURL(), transport)
	if err != nil {
		closeStore()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    store,
		router:   router,
		manager:  manager,
		client:   client,
		registry: reg,
		out:      out,
		close:    closeStore,
	}, nil
}

func (a *app) newMonitor(opts ...session.MonitorOption) *session.Monitor {
	opts = append([]session.MonitorOption{
		session.WithInactivityTimeout(a.cfg.GetInactivityTimeout()),
		session.WithCheckIntervals(a.cfg.GetExpiryCheckInterval(), a.cfg.GetInactivityCheckInterval()),
	}, opts...)
	return session.NewMonitor(a.store, a.manager, opts...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (tokenstore.Store, func() error, error) {
	noop := func() error { return nil }
	switch backend := cfg.GetStoreBackend(); backend {
	case config.StoreMemory:
		return memstore.New(), noop, nil
	case config.StoreFile:
		s, err := filestore.Open(cfg.GetStoreFile())
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.StoreRedis:
		s, err := redisstore.Dial(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisPrefix())
		if err != nil {
			return nil, nil, apperrors.Wrapf(err, "connect to redis at %s", cfg.GetRedisAddr())
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
