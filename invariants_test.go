package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRoleAssignment(t *testing.T) {
	testCases := []struct {
		name            string
		current         RoleSet
		requested       RoleSet
		actingOnSelf    bool
		expectedAllowed bool
		expectedDecider string
		expectedMsg     string
	}{
		{
			name:            "Baseline role missing",
			current:         NewRoleSet(RoleUser),
			requested:       NewRoleSet(),
			actingOnSelf:    true,
			expectedDecider: "baseline-role",
			expectedMsg:     "baseline role USER is mandatory",
		},
		{
			name:            "Baseline role missing when acting on someone else",
			current:         NewRoleSet(RoleUser),
			requested:       NewRoleSet(RoleAdmin),
			actingOnSelf:    false,
			expectedDecider: "baseline-role",
		},
		{
			name:            "Self-revoking the elevated role",
			current:         NewRoleSet(RoleUser, RoleAdmin),
			requested:       NewRoleSet(RoleUser),
			actingOnSelf:    true,
			expectedDecider: "self-revoke",
			expectedMsg:     "cannot self-revoke ADMIN",
		},
		{
			name:            "Revoking the elevated role of someone else",
			current:         NewRoleSet(RoleUser, RoleAdmin),
			requested:       NewRoleSet(RoleUser),
			actingOnSelf:    false,
			expectedAllowed: true,
		},
		{
			name:            "Keeping the elevated role on self",
			current:         NewRoleSet(RoleUser, RoleAdmin),
			requested:       NewRoleSet(RoleUser, RoleAdmin, "CURATOR"),
			actingOnSelf:    true,
			expectedAllowed: true,
		},
		{
			name:            "Granting the elevated role",
			current:         NewRoleSet(RoleUser),
			requested:       NewRoleSet(RoleUser, RoleAdmin),
			actingOnSelf:    false,
			expectedAllowed: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := ValidateRoleAssignment(tc.current, tc.requested, tc.actingOnSelf)
			assert.Equal(t, tc.expectedAllowed, d.Allowed, "Unexpected outcome: %s", d)
			if tc.expectedAllowed {
				assert.Equal(t, ReasonOK, d.Reason)
				assert.NoError(t, d.Err())
				return
			}
			assert.Equal(t, ReasonInvariantViolation, d.Reason)
			require.NotNil(t, d.Decider)
			assert.Equal(t, tc.expectedDecider, *d.Decider)
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, d.Message)
			}
			assert.ErrorIs(t, d.Err(), ErrInvariantViolation)
		})
	}
}

func TestValidateRoleDeletion(t *testing.T) {
	role := Role{ID: 3, Name: "CURATOR"}

	d := ValidateRoleDeletion(role, []int64{7})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInvariantViolation, d.Reason)
	assert.Equal(t, `role "CURATOR" still assigned to 1 principal(s)`, d.Message)
	assert.ErrorIs(t, d.Err(), ErrInvariantViolation)

	d = ValidateRoleDeletion(role, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonOK, d.Reason)
}

func TestValidateRoleRename(t *testing.T) {
	existing := &Role{ID: 2, Name: "CURATOR"}

	testCases := []struct {
		name            string
		existing        *Role
		renamingID      int64
		expectedAllowed bool
	}{
		{name: "Name unused", existing: nil, renamingID: 5, expectedAllowed: true},
		{name: "Name unused on creation", existing: nil, renamingID: 0, expectedAllowed: true},
		{name: "Same role keeps its name", existing: existing, renamingID: 2, expectedAllowed: true},
		{name: "Another role owns the name", existing: existing, renamingID: 5, expectedAllowed: false},
		{name: "Creating a duplicate", existing: existing, renamingID: 0, expectedAllowed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := ValidateRoleRename(tc.existing, tc.renamingID)
			assert.Equal(t, tc.expectedAllowed, d.Allowed)
			if !tc.expectedAllowed {
				assert.Equal(t, `duplicate role name "CURATOR"`, d.Message)
				assert.ErrorIs(t, d.Err(), ErrInvariantViolation)
			}
		})
	}
}

func TestValidateBuiltinRole(t *testing.T) {
	testCases := []struct {
		role            Role
		expectedAllowed bool
	}{
		{role: Role{ID: 1, Name: RoleUser}},
		{role: Role{ID: 2, Name: RoleAdmin}},
		{role: Role{ID: 3, Name: "CURATOR"}, expectedAllowed: true},
		{role: Role{ID: 4, Name: "user"}, expectedAllowed: true},
	}

	for _, tc := range testCases {
		t.Run(tc.role.Name, func(t *testing.T) {
			d := ValidateBuiltinRole(tc.role)
			assert.Equal(t, tc.expectedAllowed, d.Allowed)
			if !tc.expectedAllowed {
				require.NotNil(t, d.Decider)
				assert.Equal(t, "builtin-role", *d.Decider)
				assert.ErrorIs(t, d.Err(), ErrInvariantViolation)
			}
		})
	}
}
