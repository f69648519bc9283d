package rules

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authorization "github.com/betandbeat/catalog-authorization"
)

func TestDefaultMatrix(t *testing.T) {
	m, err := NewMatrix()
	require.NoError(t, err)

	anonymous := authorization.NewRoleSet()
	user := authorization.NewRoleSet(authorization.RoleUser)
	admin := authorization.NewRoleSet(authorization.RoleUser, authorization.RoleAdmin)

	testCases := []struct {
		method          string
		path            string
		roles           authorization.RoleSet
		expectedAllowed bool
		expectedDecider string
	}{
		{http.MethodPost, "/register", anonymous, true, "public"},
		{http.MethodPost, "/login", anonymous, true, "public"},
		{http.MethodGet, "/docs", anonymous, true, "public"},
		{http.MethodGet, "/movies", anonymous, false, "catalog-read"},
		{http.MethodGet, "/movies", user, true, "catalog-read"},
		{http.MethodHead, "/cinemas/3", user, true, "catalog-read"},
		{http.MethodPost, "/movies", user, false, "catalog-write"},
		{http.MethodPatch, "/actors/9", admin, true, "catalog-write"},
		{http.MethodGet, "/audiences", user, false, "audience-admin"},
		{http.MethodGet, "/audiences", admin, true, "audience-admin"},
		{http.MethodPut, "/audiences/4/roles", user, false, "audience-admin"},
		{http.MethodPut, "/audiences/4/roles", admin, true, "audience-admin"},
		{http.MethodGet, "/audiences/4", user, true, "audience-self"},
		{http.MethodDelete, "/audiences/4", anonymous, false, "audience-self"},
		{http.MethodGet, "/ratings/1", user, false, "management"},
		{http.MethodDelete, "/roles/2", admin, true, "management"},
		{http.MethodPost, "/logout", user, true, "fallback"},
		{http.MethodPost, "/logout", anonymous, false, "fallback"},
		{http.MethodGet, "/metrics", anonymous, false, "fallback"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			d := m.AuthorizeRoute(authorization.NewRouteRequest(tc.method, tc.path, tc.roles))
			assert.Equal(t, tc.expectedAllowed, d.Allowed, "Unexpected outcome: %s", d)
			require.NotNil(t, d.Decider)
			assert.Equal(t, tc.expectedDecider, *d.Decider)
		})
	}
}

func TestAll_FallbackIsLast(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	assert.Equal(t, FALLBACK.ID, all[len(all)-1].ID)

	seen := map[string]bool{}
	for _, r := range all {
		assert.False(t, seen[r.ID], "duplicate rule id %q", r.ID)
		seen[r.ID] = true
	}
}
