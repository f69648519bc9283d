package catalog_rules

import (
	"net/http"

	authorization "github.com/betandbeat/catalog-authorization"
)

func All() []authorization.Rule {
	return []authorization.Rule{
		CATALOG_READ,
		CATALOG_WRITE,
		MANAGEMENT,
	}
}

// Resources lists the catalog collections mounted behind the gate.
var Resources = []string{"movies", "directors", "actors", "cinemas"}

var (
	CATALOG_READ = authorization.Rule{
		ID:          "catalog-read",
		Description: "Browsing the catalog requires the baseline role",
		Methods:     []string{http.MethodGet, http.MethodHead},
		Patterns:    catalogPatterns(),
		Requirement: authorization.RequireRole(authorization.RoleUser),
	}
	CATALOG_WRITE = authorization.Rule{
		ID:          "catalog-write",
		Description: "Changing the catalog requires the elevated role",
		Methods:     []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		Patterns:    catalogPatterns(),
		Requirement: authorization.RequireRole(authorization.RoleAdmin),
	}
	MANAGEMENT = authorization.Rule{
		ID:          "management",
		Description: "Role and rating management",
		Methods:     []string{authorization.MethodAny},
		Patterns:    []string{"/roles", "/roles/**", "/ratings", "/ratings/**"},
		Requirement: authorization.RequireRole(authorization.RoleAdmin),
	}
)

func catalogPatterns() []string {
	patterns := make([]string, 0, 2*len(Resources))
	for _, r := range Resources {
		patterns = append(patterns, "/"+r, "/"+r+"/**")
	}
	return patterns
}
