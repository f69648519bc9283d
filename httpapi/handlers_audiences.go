package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authorization "github.com/betandbeat/catalog-authorization"
)

type profileRequest struct {
	Username string `json:"username" validate:"omitempty,max=64"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type rolesRequest struct {
	Roles []string `json:"roles" validate:"required,dive,required"`
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", raw, authorization.ErrInvalidArgument)
	}
	return id, nil
}

func (a *API) handleListAudiences(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	principals, err := a.audiences.List(r.Context(), caller, r.URL.Query().Get("username"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	views := make([]principalView, 0, len(principals))
	for _, p := range principals {
		views = append(views, viewOf(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) handleViewProfile(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	id, err := idParam(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	p, err := a.audiences.ViewProfile(r.Context(), caller, id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	id, err := idParam(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req profileRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	p, err := a.audiences.UpdateProfile(r.Context(), caller, authorization.ProfileUpdate{
		PrincipalID: id,
		Username:    req.Username,
		Password:    req.Password,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}

func (a *API) handleDeleteAccount(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	id, err := idParam(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.audiences.DeleteAccount(r.Context(), caller, id); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAssignRoles(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	id, err := idParam(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req rolesRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	p, err := a.audiences.AssignRoles(r.Context(), caller, authorization.RoleAssignment{PrincipalID: id, Roles: req.Roles})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}
