// Package rules holds the access matrix of the catalog backend.
package rules

import (
	authorization "github.com/betandbeat/catalog-authorization"
	"github.com/betandbeat/catalog-authorization/rules/catalog_rules"
	"github.com/betandbeat/catalog-authorization/rules/iam_rules"
)

var FALLBACK = authorization.Rule{
	ID:          "fallback",
	Description: "Any other route is open to every authenticated principal",
	Methods:     []string{authorization.MethodAny},
	Patterns:    []string{"/**"},
	Requirement: authorization.Authenticated(),
}

// All returns the rule table in evaluation order.
func All() []authorization.Rule {
	all := []authorization.Rule{}
	all = append(all, iam_rules.All()...)
	all = append(all, catalog_rules.All()...)
	all = append(all, FALLBACK)
	return all
}

// NewMatrix compiles the default table.
func NewMatrix() (authorization.Matrix, error) {
	return authorization.NewMatrix(All())
}
