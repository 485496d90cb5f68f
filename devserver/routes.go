package devserver

import (
	"net/http"

	"github.com/jrsteele09/temoins-console/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route path constants
const (
	// Token endpoints (SimpleJWT)
	RouteTokenObtain  = "/api/token/"
	RouteTokenRefresh = "/api/token/refresh/"

	// Sample domain endpoints, bearer protected
	RouteTemoins = "/api/superadmin/temoins/"
	RouteRegions = "/api/geographic-data/regions/"
	RouteMe      = "/api/me/"

	RouteMetrics = "/metrics"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteTokenObtain, ChainMiddleware(s.TokenObtain(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteTokenRefresh, ChainMiddleware(s.TokenRefresh(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteTemoins, ChainMiddleware(s.Temoins(), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleSuperAdmin))...))
	s.RegisterRouteFunc("GET "+RouteRegions, ChainMiddleware(s.Regions(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.Me(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("/", ChainMiddleware(s.notFound(), s.APIMiddleware()...))
}

func (s *Server) notFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	}
}
