package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolderIndex(t *testing.T) {
	user := RoleRef{ID: 1, Name: RoleUser}
	admin := RoleRef{ID: 2, Name: RoleAdmin}

	idx := NewHolderIndex()
	idx.Set(10, []RoleRef{user, admin})
	idx.Set(11, []RoleRef{user})
	assert.Equal(t, []int64{10, 11}, idx.Holders(user.ID))
	assert.Equal(t, []int64{10}, idx.Holders(admin.ID))

	// Replacing memberships drops stale entries.
	idx.Set(10, []RoleRef{user})
	assert.Empty(t, idx.Holders(admin.ID))
	assert.Equal(t, 0, idx.Count(admin.ID))

	idx.Remove(11)
	assert.Equal(t, []int64{10}, idx.Holders(user.ID))
	assert.Equal(t, 1, idx.Count(user.ID))

	idx.Rebuild([]Principal{
		{ID: 20, Roles: []RoleRef{admin}},
		{ID: 21, Roles: []RoleRef{user, admin}},
	})
	assert.Equal(t, []int64{21}, idx.Holders(user.ID))
	assert.Equal(t, []int64{20, 21}, idx.Holders(admin.ID))
	assert.Empty(t, idx.Holders(99))
}
