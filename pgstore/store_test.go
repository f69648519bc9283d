package pgstore

import (
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authorization "github.com/betandbeat/catalog-authorization"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load()
	dsn := os.Getenv("PGSTORE_TEST_DSN")
	if dsn == "" {
		t.Skip("PGSTORE_TEST_DSN not set")
	}
	ctx := t.Context()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE principal_roles, principals, roles RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return pool
}

func TestStore_Principals(t *testing.T) {
	s := New(testPool(t))
	ctx := t.Context()

	user, err := s.SaveRole(ctx, authorization.Role{Name: authorization.RoleUser})
	require.NoError(t, err)
	admin, err := s.SaveRole(ctx, authorization.Role{Name: authorization.RoleAdmin})
	require.NoError(t, err)

	alice, err := s.Save(ctx, authorization.Principal{Username: "alice", PasswordHash: "h", Roles: []authorization.RoleRef{user.Ref()}})
	require.NoError(t, err)
	assert.NotZero(t, alice.ID)

	_, err = s.Save(ctx, authorization.Principal{Username: "alice", PasswordHash: "h"})
	assert.ErrorIs(t, err, authorization.ErrConflict)

	alice.Roles = []authorization.RoleRef{user.Ref(), admin.Ref()}
	_, err = s.Save(ctx, alice)
	require.NoError(t, err)

	found, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{authorization.RoleAdmin, authorization.RoleUser}, found.RoleNames())
	assert.Equal(t, "h", found.PasswordHash)

	_, err = s.FindByID(ctx, 999)
	assert.ErrorIs(t, err, authorization.ErrNotFound)

	_, err = s.Save(ctx, authorization.Principal{Username: "carol", PasswordHash: "h", Roles: []authorization.RoleRef{{ID: 999, Name: "GHOST"}}})
	assert.ErrorIs(t, err, authorization.ErrNotFound, "unknown role ids are not found, as in memory")
	_, err = s.FindByUsername(ctx, "carol")
	assert.ErrorIs(t, err, authorization.ErrNotFound, "the failed save is rolled back")

	_, err = s.Save(ctx, authorization.Principal{Username: "albert", PasswordHash: "h", Roles: []authorization.RoleRef{user.Ref()}})
	require.NoError(t, err)
	listed, err := s.List(ctx, "al*")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	holders, err := s.Holders(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID}, holders)

	require.NoError(t, s.Delete(ctx, alice.ID))
	count, err := s.HolderCount(ctx, admin.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "memberships go with the principal")
	assert.ErrorIs(t, s.Delete(ctx, alice.ID), authorization.ErrNotFound)
}

func TestStore_Roles(t *testing.T) {
	s := New(testPool(t))
	ctx := t.Context()

	curator, err := s.SaveRole(ctx, authorization.Role{Name: "CURATOR"})
	require.NoError(t, err)
	_, err = s.SaveRole(ctx, authorization.Role{Name: "CURATOR"})
	assert.ErrorIs(t, err, authorization.ErrConflict)

	p, err := s.Save(ctx, authorization.Principal{Username: "bob", PasswordHash: "h", Roles: []authorization.RoleRef{curator.Ref()}})
	require.NoError(t, err)

	curator.Name = "EDITOR"
	_, err = s.SaveRole(ctx, curator)
	require.NoError(t, err)
	p, err = s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"EDITOR"}, p.RoleNames())

	assert.ErrorIs(t, s.DeleteRole(ctx, curator.ID), authorization.ErrConflict)

	p.Roles = nil
	_, err = s.Save(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.DeleteRole(ctx, curator.ID))

	_, err = s.FindRoleByID(ctx, curator.ID)
	assert.ErrorIs(t, err, authorization.ErrNotFound)
	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
