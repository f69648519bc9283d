package iam_rules

import authorization "github.com/betandbeat/catalog-authorization"

func All() []authorization.Rule {
	return []authorization.Rule{
		PUBLIC,
		AUDIENCE_ADMIN,
		AUDIENCE_SELF,
	}
}

var (
	PUBLIC = authorization.Rule{
		ID:          "public",
		Description: "Registration, login and API docs need no session",
		Methods:     []string{authorization.MethodAny},
		Patterns:    []string{"/register", "/login", "/docs", "/docs/**"},
		Requirement: authorization.Public(),
	}
	AUDIENCE_ADMIN = authorization.Rule{
		ID:          "audience-admin",
		Description: "Listing every audience member and assigning roles is reserved to administrators",
		Methods:     []string{authorization.MethodAny},
		Patterns:    []string{"/audiences", "/audiences/*/roles"},
		Requirement: authorization.RequireRole(authorization.RoleAdmin),
	}
	AUDIENCE_SELF = authorization.Rule{
		ID:          "audience-self",
		Description: "Audience profile routes; ownership is checked by the operation itself",
		Methods:     []string{authorization.MethodAny},
		Patterns:    []string{"/audiences/*", "/audiences/*/**"},
		Requirement: authorization.RequireRole(authorization.RoleUser),
	}
)
