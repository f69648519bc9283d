package authorization

import "fmt"

// ValidateRoleAssignment checks a requested role set before it replaces
// current. actingOnSelf is true when the caller is changing their own
// roles.
func ValidateRoleAssignment(current, requested RoleSet, actingOnSelf bool) Decision {
	if !requested.Has(RoleUser) {
		return deny(ReasonInvariantViolation, fmt.Sprintf("baseline role %s is mandatory", RoleUser), stringPtr("baseline-role"))
	}
	if actingOnSelf && current.Has(RoleAdmin) && !requested.Has(RoleAdmin) {
		return deny(ReasonInvariantViolation, fmt.Sprintf("cannot self-revoke %s", RoleAdmin), stringPtr("self-revoke"))
	}
	return allow("role assignment accepted", nil)
}

// ValidateRoleDeletion refuses to delete a role somebody still holds.
func ValidateRoleDeletion(role Role, holders []int64) Decision {
	if len(holders) > 0 {
		return deny(ReasonInvariantViolation,
			fmt.Sprintf("role %q still assigned to %d principal(s)", role.Name, len(holders)),
			stringPtr("role-in-use"))
	}
	return allow(fmt.Sprintf("role %q has no holders", role.Name), nil)
}

// ValidateRoleRename checks the role found under the requested name, if
// any, against the id being renamed. Use renamingID 0 for a new role.
func ValidateRoleRename(existing *Role, renamingID int64) Decision {
	if existing != nil && existing.ID != renamingID {
		return deny(ReasonInvariantViolation,
			fmt.Sprintf("duplicate role name %q", existing.Name),
			stringPtr("duplicate-role-name"))
	}
	return allow("role name available", nil)
}

// ValidateBuiltinRole refuses to rename or delete the baseline and
// elevated roles; principals and access rules refer to them by name.
func ValidateBuiltinRole(role Role) Decision {
	if role.Name == RoleUser || role.Name == RoleAdmin {
		return deny(ReasonInvariantViolation,
			fmt.Sprintf("built-in role %q cannot be renamed or deleted", role.Name),
			stringPtr("builtin-role"))
	}
	return allow(fmt.Sprintf("role %q is not built in", role.Name), nil)
}
