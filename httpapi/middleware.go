package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authorization "github.com/betandbeat/catalog-authorization"
)

type callerKey struct{}

// callerHandler receives the principal resolved by authenticate as an
// explicit argument.
type callerHandler func(w http.ResponseWriter, r *http.Request, caller authorization.Principal)

// withCaller is the only place the resolved principal is read back from
// the request context.
func withCaller(h callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := r.Context().Value(callerKey{}).(authorization.Principal)
		h(w, r, caller)
	}
}

// authenticate resolves the session token once per request. Missing,
// unknown or expired tokens leave the caller anonymous.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var caller authorization.Principal
		if token := a.tokenFrom(r); token != "" {
			p, err := a.resolve(r.Context(), token)
			if err != nil && !errors.Is(err, authorization.ErrNotFound) {
				a.respondError(w, r, err)
				return
			}
			caller = p
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func (a *API) resolve(ctx context.Context, token string) (authorization.Principal, error) {
	id, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		return authorization.Principal{}, err
	}
	return a.principals.FindByID(ctx, id)
}

func (a *API) tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(a.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// canonicalPath rewrites the request path to its cleaned, unescaped form
// before routing. The access matrix and the router must see the same path.
func canonicalPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := authorization.NormalizePath(r.URL.Path)
		if clean != r.URL.Path || r.URL.RawPath != "" {
			u := *r.URL
			u.Path = clean
			u.RawPath = ""
			r = r.Clone(r.Context())
			r.URL = &u
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.RoutePath = r.URL.Path
		}
		next.ServeHTTP(w, r)
	})
}

// gate applies the access matrix before any handler runs.
func (a *API) gate(next http.Handler) http.Handler {
	return withCaller(func(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
		req := authorization.NewRouteRequest(r.Method, r.URL.Path, caller.RoleSet())
		decision := a.matrix.AuthorizeRoute(req)
		a.metrics.decisions.WithLabelValues("route", string(decision.Reason)).Inc()
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		status := http.StatusForbidden
		if caller.IsAnonymous() {
			status = http.StatusUnauthorized
		}
		a.logger.Debug().
			Str("method", req.Method).
			Str("path", req.Path).
			Strs("roles", req.Roles).
			Str("decision", decision.String()).
			Msg("route denied")
		writeProblem(w, ProblemDetail{
			Title:  http.StatusText(status),
			Status: status,
			Detail: decision.Message,
			Reason: string(decision.Reason),
		})
	})
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
