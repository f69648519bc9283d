package authorization

import (
	"fmt"
	"path"
	"strings"
)

// RouteRequest is the input of the access matrix. Field tags name the
// variables available to rule requirement expressions.
type RouteRequest struct {
	Method string   `json:"method" expr:"method"`
	Path   string   `json:"path" expr:"path"`
	Roles  []string `json:"roles" expr:"roles"`
}

func NewRouteRequest(method, p string, roles RoleSet) RouteRequest {
	return RouteRequest{}.WithMethod(method).WithPath(p).WithRoles(roles)
}

func (r RouteRequest) WithMethod(method string) RouteRequest {
	r.Method = strings.ToUpper(strings.TrimSpace(method))
	return r
}

func (r RouteRequest) WithPath(p string) RouteRequest {
	r.Path = NormalizePath(p)
	return r
}

func (r RouteRequest) WithRoles(roles RoleSet) RouteRequest {
	r.Roles = roles.Names()
	return r
}

// Anonymous reports whether the request carries no roles at all.
func (r RouteRequest) Anonymous() bool {
	return len(r.Roles) == 0
}

func (r RouteRequest) String() string {
	return fmt.Sprintf("RouteRequest{Method: %s, Path: %s, Roles: %v}", r.Method, r.Path, r.Roles)
}

// NormalizePath cleans p into the rooted, slash-separated form the
// matrix patterns are written against. Trailing slashes are dropped.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
