// Package httpapi exposes the authorization layer over HTTP. Every
// request passes principal resolution and the access matrix before a
// handler runs.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	authorization "github.com/betandbeat/catalog-authorization"
)

// SessionStore maps opaque tokens to principal ids.
type SessionStore interface {
	Create(ctx context.Context, principalID int64) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

type Params struct {
	Logger     zerolog.Logger
	Matrix     authorization.Matrix
	Audiences  *authorization.AudienceService
	Roles      *authorization.RoleService
	Principals authorization.PrincipalStore
	Sessions   SessionStore

	SessionCookie string
	// Production turns on secure cookies and TLS redirects.
	Production bool
	// LoginRateLimit is the number of login and registration attempts
	// allowed per client IP and minute. Zero disables throttling.
	LoginRateLimit int

	// Collections are catalog handlers mounted under "/<name>" behind
	// the access matrix, e.g. "movies" or "ratings".
	Collections map[string]http.Handler
	Registry    *prometheus.Registry
}

type API struct {
	logger     zerolog.Logger
	matrix     authorization.Matrix
	audiences  *authorization.AudienceService
	roles      *authorization.RoleService
	principals authorization.PrincipalStore
	sessions   SessionStore
	cookieName string
	production bool
	validate   *validator.Validate
	metrics    *metrics
}

func NewRouter(p Params) http.Handler {
	cookie := p.SessionCookie
	if cookie == "" {
		cookie = "catalog_session"
	}
	a := &API{
		logger:     p.Logger.With().Str("component", "httpapi").Logger(),
		matrix:     p.Matrix,
		audiences:  p.Audiences,
		roles:      p.Roles,
		principals: p.Principals,
		sessions:   p.Sessions,
		cookieName: cookie,
		production: p.Production,
		validate:   validator.New(),
		metrics:    newMetrics(p.Registry),
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        p.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !p.Production,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(canonicalPath)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(a.authenticate)
	r.Use(a.gate)

	r.Group(func(gr chi.Router) {
		if p.LoginRateLimit > 0 {
			gr.Use(httprate.Limit(p.LoginRateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeProblem(w, ProblemDetail{
						Title:  http.StatusText(http.StatusTooManyRequests),
						Status: http.StatusTooManyRequests,
					})
				}),
			))
		}
		gr.Post("/register", a.handleRegister)
		gr.Post("/login", a.handleLogin)
	})
	r.Post("/logout", a.handleLogout)
	r.Get("/docs", a.handleDocs)

	r.Route("/audiences", func(ar chi.Router) {
		ar.Get("/", withCaller(a.handleListAudiences))
		ar.Get("/{id}", withCaller(a.handleViewProfile))
		ar.Put("/{id}", withCaller(a.handleUpdateProfile))
		ar.Delete("/{id}", withCaller(a.handleDeleteAccount))
		ar.Put("/{id}/roles", withCaller(a.handleAssignRoles))
	})

	r.Route("/roles", func(rr chi.Router) {
		rr.Get("/", withCaller(a.handleListRoles))
		rr.Post("/", withCaller(a.handleCreateRole))
		rr.Put("/{id}", withCaller(a.handleRenameRole))
		rr.Delete("/{id}", withCaller(a.handleDeleteRole))
	})

	r.Method(http.MethodGet, "/metrics", a.metrics.handler())

	for name, h := range p.Collections {
		r.Mount("/"+name, h)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, ProblemDetail{Title: http.StatusText(http.StatusNotFound), Status: http.StatusNotFound})
	})
	return r
}
