// Package httpapi is the HTTP surface of the service: authentication flows,
// tenant and user administration, health probes and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"cerbero.org/internal/auth"
	"cerbero.org/internal/obs"
)

// ReadyProbe reports whether the service can take traffic. A nil probe means
// always ready.
type ReadyProbe func(ctx context.Context) error

// Config wires the API's collaborators.
type Config struct {
	Auth    *auth.Service
	Tenants *auth.TenantService
	Users   *auth.UserService
	Ready   ReadyProbe
	Version string

	CORSOrigins   []string
	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer.
type API struct {
	mux     *http.ServeMux
	auth    *auth.Service
	tenants *auth.TenantService
	users   *auth.UserService
	ready   ReadyProbe
	version string

	corsOrigins []string
	rateBurst   int
	ratePerSec  int
}

// New builds the router. Call Handler for the fully wrapped handler.
func New(cfg Config) *API {
	a := &API{
		mux:         http.NewServeMux(),
		auth:        cfg.Auth,
		tenants:     cfg.Tenants,
		users:       cfg.Users,
		ready:       cfg.Ready,
		version:     cfg.Version,
		corsOrigins: cfg.CORSOrigins,
		rateBurst:   cfg.RateBurst,
		ratePerSec:  cfg.RatePerSecond,
	}

	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	a.mux.HandleFunc("/v1/tenants", a.handleTenants)
	a.mux.HandleFunc("/v1/tenants/", a.handleTenantResource)

	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the mux wrapped with authentication, middleware and metrics.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	if a.rateBurst > 0 && a.ratePerSec > 0 {
		h = RateLimit(h, a.rateBurst, a.ratePerSec)
	}
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "cerbero-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
