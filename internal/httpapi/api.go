package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"tenauth.org/internal/auth"
	"tenauth.org/internal/obs"
)

// ReadyProbe reports whether the service can reach its dependencies.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options configures the HTTP layer.
type Options struct {
	Version        string
	ReadyProbe     ReadyProbe
	Cookies        CookieSettings
	AllowedOrigins []string
	MaxBodyBytes   int64
	RatePerSecond  int
	RateBurst      int
}

// API is the HTTP layer over the auth service.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	readyProbe ReadyProbe
	version    string
	cookies    CookieSettings
	opts       Options
}

func New(svc *auth.Service, opts Options) *API {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
		cookies:    opts.Cookies,
		opts:       opts,
	}

	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReady)
	a.mux.Handle("/metrics", obs.Handler())
	a.mux.HandleFunc("/.well-known/jwks.json", a.handleJWKS)

	a.mux.HandleFunc("/auth/register", a.handleRegister)
	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/auth/self", a.withAccessToken(a.handleSelf))

	adminOnly := RequireRole(auth.RoleAdmin)
	a.mux.HandleFunc("/tenants", a.withAccessToken(adminOnly(a.handleTenants)))
	a.mux.HandleFunc("/tenants/", a.withAccessToken(adminOnly(a.handleTenantByID)))
	a.mux.HandleFunc("/users", a.withAccessToken(adminOnly(a.handleUsers)))
	a.mux.HandleFunc("/users/", a.withAccessToken(adminOnly(a.handleUserByID)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound, "Resource not found.")
	})

	return a
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = LoggingJSON(h)
	h = RateLimit(h, a.opts.RatePerSecond, a.opts.RateBurst)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(h, a.opts.AllowedOrigins)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "auth-service",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, a.svc.JWKS())
}
