package authorization

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type RoleRename struct {
	RoleID int64  `json:"role_id"`
	Name   string `json:"name"`
}

// RoleService manages the role registry under the deletion and naming
// invariants.
type RoleService struct {
	roles RoleRegistry

	list   Operation[Void, []Role]
	create Operation[string, Role]
	rename Operation[RoleRename, Role]
	remove Operation[int64, Void]
}

const roleClass = "RoleService"

func NewRoleService(roles RoleRegistry, observer CallObserver) *RoleService {
	if observer == nil {
		observer = NopObserver{}
	}
	s := &RoleService{roles: roles}
	s.list = Chain[Void, []Role](s.doList, Trace[Void, []Role](observer, roleClass, "ListRoles"))
	s.create = Chain[string, Role](s.doCreate, Trace[string, Role](observer, roleClass, "CreateRole"))
	s.rename = Chain[RoleRename, Role](s.doRename, Trace[RoleRename, Role](observer, roleClass, "RenameRole"))
	s.remove = Chain[int64, Void](s.doDelete, Trace[int64, Void](observer, roleClass, "DeleteRole"))
	return s
}

func (s *RoleService) ListRoles(ctx context.Context, caller Principal) ([]Role, error) {
	return s.list(ctx, caller, Void{})
}

func (s *RoleService) CreateRole(ctx context.Context, caller Principal, name string) (Role, error) {
	return s.create(ctx, caller, name)
}

func (s *RoleService) RenameRole(ctx context.Context, caller Principal, r RoleRename) (Role, error) {
	return s.rename(ctx, caller, r)
}

// DeleteRole removes a role nobody holds. The built-in roles are never
// deleted.
func (s *RoleService) DeleteRole(ctx context.Context, caller Principal, id int64) error {
	_, err := s.remove(ctx, caller, id)
	return err
}

func (s *RoleService) doList(ctx context.Context, _ Principal, _ Void) ([]Role, error) {
	return s.roles.ListRoles(ctx)
}

func (s *RoleService) doCreate(ctx context.Context, _ Principal, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if err := s.checkName(ctx, name, 0); err != nil {
		return Role{}, err
	}
	return s.roles.SaveRole(ctx, Role{Name: name})
}

func (s *RoleService) doRename(ctx context.Context, _ Principal, r RoleRename) (Role, error) {
	role, err := s.roles.FindRoleByID(ctx, r.RoleID)
	if err != nil {
		return Role{}, err
	}
	name := strings.TrimSpace(r.Name)
	if name != role.Name {
		if err := ValidateBuiltinRole(role).Err(); err != nil {
			return Role{}, err
		}
	}
	if err := s.checkName(ctx, name, role.ID); err != nil {
		return Role{}, err
	}
	role.Name = name
	return s.roles.SaveRole(ctx, role)
}

func (s *RoleService) doDelete(ctx context.Context, _ Principal, id int64) (Void, error) {
	role, err := s.roles.FindRoleByID(ctx, id)
	if err != nil {
		return Void{}, err
	}
	if err := ValidateBuiltinRole(role).Err(); err != nil {
		return Void{}, err
	}
	holders, err := s.roles.Holders(ctx, id)
	if err != nil {
		return Void{}, fmt.Errorf("failed to load holders of role %q: %w", role.Name, err)
	}
	if err := ValidateRoleDeletion(role, holders).Err(); err != nil {
		return Void{}, err
	}
	return Void{}, s.roles.DeleteRole(ctx, id)
}

func (s *RoleService) checkName(ctx context.Context, name string, renamingID int64) error {
	if name == "" {
		return fmt.Errorf("role name required: %w", ErrInvalidArgument)
	}
	existing, err := s.roles.FindByName(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up role %q: %w", name, err)
	}
	return ValidateRoleRename(&existing, renamingID).Err()
}
