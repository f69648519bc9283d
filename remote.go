package authorization

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// RemoteStore talks to an external identity service over HTTP and
// implements both PrincipalStore and RoleRegistry. Failed calls are
// reported as *TransportError and never retried.
type RemoteStore struct {
	client        http.Client
	endpoint      string
	bearerTokenFn func() (string, error)
}

func NewRemoteStore(endpoint string, bearerTokenFn func() (string, error)) *RemoteStore {
	return &RemoteStore{
		client:        http.Client{Timeout: 10 * time.Second},
		endpoint:      endpoint,
		bearerTokenFn: bearerTokenFn,
	}
}

// remotePrincipal is the wire form of Principal; unlike Principal it
// carries the password hash.
type remotePrincipal struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Roles        []RoleRef `json:"roles"`
}

func toRemote(p Principal) remotePrincipal {
	return remotePrincipal{ID: p.ID, Username: p.Username, PasswordHash: p.PasswordHash, Roles: p.Roles}
}

func (rp remotePrincipal) principal() Principal {
	return Principal{ID: rp.ID, Username: rp.Username, PasswordHash: rp.PasswordHash, Roles: rp.Roles}
}

type holdersResponse struct {
	Holders []int64 `json:"holders"`
}

func (r *RemoteStore) FindByID(ctx context.Context, id int64) (Principal, error) {
	var rp remotePrincipal
	if err := r.do(ctx, http.MethodGet, "/principals/"+strconv.FormatInt(id, 10), nil, &rp); err != nil {
		return Principal{}, err
	}
	return rp.principal(), nil
}

func (r *RemoteStore) FindByUsername(ctx context.Context, username string) (Principal, error) {
	var rp remotePrincipal
	if err := r.do(ctx, http.MethodGet, "/principals/by-username/"+url.PathEscape(username), nil, &rp); err != nil {
		return Principal{}, err
	}
	return rp.principal(), nil
}

func (r *RemoteStore) Save(ctx context.Context, p Principal) (Principal, error) {
	method, path := http.MethodPost, "/principals"
	if p.ID != 0 {
		method, path = http.MethodPut, "/principals/"+strconv.FormatInt(p.ID, 10)
	}
	var rp remotePrincipal
	if err := r.do(ctx, method, path, toRemote(p), &rp); err != nil {
		return Principal{}, err
	}
	return rp.principal(), nil
}

func (r *RemoteStore) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, http.MethodDelete, "/principals/"+strconv.FormatInt(id, 10), nil, nil)
}

func (r *RemoteStore) List(ctx context.Context, pattern string) ([]Principal, error) {
	path := "/principals"
	if pattern != "" {
		path += "?pattern=" + url.QueryEscape(pattern)
	}
	var rps []remotePrincipal
	if err := r.do(ctx, http.MethodGet, path, nil, &rps); err != nil {
		return nil, err
	}
	principals := make([]Principal, len(rps))
	for i, rp := range rps {
		principals[i] = rp.principal()
	}
	return principals, nil
}

func (r *RemoteStore) FindByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.do(ctx, http.MethodGet, "/roles/by-name/"+url.PathEscape(name), nil, &role)
	return role, err
}

func (r *RemoteStore) FindRoleByID(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.do(ctx, http.MethodGet, "/roles/"+strconv.FormatInt(id, 10), nil, &role)
	return role, err
}

func (r *RemoteStore) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := r.do(ctx, http.MethodGet, "/roles", nil, &roles)
	return roles, err
}

func (r *RemoteStore) SaveRole(ctx context.Context, role Role) (Role, error) {
	method, path := http.MethodPost, "/roles"
	if role.ID != 0 {
		method, path = http.MethodPut, "/roles/"+strconv.FormatInt(role.ID, 10)
	}
	var saved Role
	err := r.do(ctx, method, path, role, &saved)
	return saved, err
}

func (r *RemoteStore) DeleteRole(ctx context.Context, id int64) error {
	return r.do(ctx, http.MethodDelete, "/roles/"+strconv.FormatInt(id, 10), nil, nil)
}

func (r *RemoteStore) Holders(ctx context.Context, roleID int64) ([]int64, error) {
	var resp holdersResponse
	if err := r.do(ctx, http.MethodGet, "/roles/"+strconv.FormatInt(roleID, 10)+"/holders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Holders, nil
}

func (r *RemoteStore) HolderCount(ctx context.Context, roleID int64) (int, error) {
	holders, err := r.Holders(ctx, roleID)
	if err != nil {
		return 0, err
	}
	return len(holders), nil
}

func (r *RemoteStore) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	token, err := r.bearerTokenFn()
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to obtain bearer token: %w", err)}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, r.endpoint+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

var (
	_ PrincipalStore = (*RemoteStore)(nil)
	_ RoleRegistry   = (*RemoteStore)(nil)
)
