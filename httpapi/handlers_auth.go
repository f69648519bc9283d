package httpapi

import (
	"fmt"
	"net/http"
	"time"

	authorization "github.com/betandbeat/catalog-authorization"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// principalView is the outward shape of a principal; it never carries
// the password hash.
type principalView struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func viewOf(p authorization.Principal) principalView {
	return principalView{ID: p.ID, Username: p.Username, Roles: p.RoleNames()}
}

func (a *API) decodeValid(r *http.Request, target any) error {
	if err := decodeJSON(r, target); err != nil {
		return fmt.Errorf("malformed request body: %w", authorization.ErrInvalidArgument)
	}
	if err := a.validate.Struct(target); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), authorization.ErrInvalidArgument)
	}
	return nil
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	p, err := a.audiences.Register(r.Context(), authorization.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(p))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, fmt.Errorf("malformed request body: %w", authorization.ErrInvalidArgument))
		return
	}
	p, err := a.audiences.Authenticate(r.Context(), authorization.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	token, err := a.sessions.Create(r.Context(), p.ID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	ttl := a.sessions.TTL()
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   a.production,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresIn: int64(ttl.Seconds())})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := a.tokenFrom(r); token != "" {
		if err := a.sessions.Destroy(r.Context(), token); err != nil {
			a.respondError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.production,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleDocs publishes the access matrix rules in declaration order.
func (a *API) handleDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.matrix.Rules())
}
