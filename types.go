package authorization

import (
	"context"
	"sort"
)

// Role names every deployment understands.
const (
	// RoleUser is the baseline role every registered principal holds.
	RoleUser = "USER"
	// RoleAdmin is the elevated role granting administrative capability.
	RoleAdmin = "ADMIN"
)

type Principal struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []RoleRef `json:"roles"`
}

// IsAnonymous reports whether p is the zero principal used for
// unauthenticated callers.
func (p Principal) IsAnonymous() bool {
	return p.ID == 0 && p.Username == ""
}

func (p Principal) RoleSet() RoleSet {
	set := make(RoleSet, len(p.Roles))
	for _, r := range p.Roles {
		set[r.Name] = struct{}{}
	}
	return set
}

func (p Principal) RoleNames() []string {
	return p.RoleSet().Names()
}

type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (r Role) Ref() RoleRef {
	return RoleRef{ID: r.ID, Name: r.Name}
}

// RoleSet is an unordered set of role names.
type RoleSet map[string]struct{}

func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the role names in sorted order.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PrincipalStore is the persistence collaborator for principals.
// Lookups return ErrNotFound when nothing matches. Save creates the
// principal when ID is zero and otherwise replaces it, role set
// included, in a single write.
type PrincipalStore interface {
	FindByID(ctx context.Context, id int64) (Principal, error)
	FindByUsername(ctx context.Context, username string) (Principal, error)
	Save(ctx context.Context, p Principal) (Principal, error)
	Delete(ctx context.Context, id int64) error
	// List returns principals whose username matches the glob pattern.
	// An empty pattern matches everything.
	List(ctx context.Context, pattern string) ([]Principal, error)
}

// RoleRegistry is the persistence collaborator for roles.
type RoleRegistry interface {
	FindByName(ctx context.Context, name string) (Role, error)
	FindRoleByID(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	SaveRole(ctx context.Context, r Role) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	// Holders returns the ids of principals currently holding the role.
	Holders(ctx context.Context, roleID int64) ([]int64, error)
	HolderCount(ctx context.Context, roleID int64) (int, error)
}

// ReferenceDetacher releases references a collaborator (ratings,
// ownership records) keeps to a principal before it is deleted.
type ReferenceDetacher interface {
	DetachPrincipal(ctx context.Context, principalID int64) error
}
