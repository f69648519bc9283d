package httpapi

import (
	"net/http"

	authorization "github.com/betandbeat/catalog-authorization"
)

type roleRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	roles, err := a.roles.ListRoles(r.Context(), caller)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	var req roleRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	role, err := a.roles.CreateRole(r.Context(), caller, req.Name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRenameRole(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	id, err := idParam(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req roleRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	role, err := a.roles.RenameRole(r.Context(), caller, authorization.RoleRename{RoleID: id, Name: req.Name})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleDeleteRole(w http.ResponseWriter, r *http.Request, caller authorization.Principal) {
	id, err := idParam(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.roles.DeleteRole(r.Context(), caller, id); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
