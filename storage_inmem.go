package authorization

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// inMemoryStorage implements both PrincipalStore and RoleRegistry.
type inMemoryStorage struct {
	mu            sync.RWMutex
	principals    map[int64]Principal
	roles         map[int64]Role
	nextPrincipal int64
	nextRole      int64
	index         *HolderIndex
}

func NewInMemoryStorage() *inMemoryStorage {
	return &inMemoryStorage{
		principals: make(map[int64]Principal),
		roles:      make(map[int64]Role),
		index:      NewHolderIndex(),
	}
}

func (s *inMemoryStorage) FindByID(ctx context.Context, id int64) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return Principal{}, fmt.Errorf("principal %d: %w", id, ErrNotFound)
	}
	return clonePrincipal(p), nil
}

func (s *inMemoryStorage) FindByUsername(ctx context.Context, username string) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.principals {
		if p.Username == username {
			return clonePrincipal(p), nil
		}
	}
	return Principal{}, fmt.Errorf("principal %q: %w", username, ErrNotFound)
}

// Save swaps the whole principal under the write lock, so readers see
// either the old or the new role set.
func (s *inMemoryStorage) Save(ctx context.Context, p Principal) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.principals {
		if existing.Username == p.Username && id != p.ID {
			return Principal{}, fmt.Errorf("username %q: %w", p.Username, ErrConflict)
		}
	}
	if p.ID == 0 {
		s.nextPrincipal++
		p.ID = s.nextPrincipal
	} else if _, ok := s.principals[p.ID]; !ok {
		return Principal{}, fmt.Errorf("principal %d: %w", p.ID, ErrNotFound)
	}
	for _, r := range p.Roles {
		if _, ok := s.roles[r.ID]; !ok {
			return Principal{}, fmt.Errorf("role %d: %w", r.ID, ErrNotFound)
		}
	}
	p = clonePrincipal(p)
	s.principals[p.ID] = p
	s.index.Set(p.ID, p.Roles)
	return clonePrincipal(p), nil
}

func (s *inMemoryStorage) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.principals[id]; !ok {
		return fmt.Errorf("principal %d: %w", id, ErrNotFound)
	}
	delete(s.principals, id)
	s.index.Remove(id)
	return nil
}

func (s *inMemoryStorage) List(ctx context.Context, pattern string) ([]Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Principal
	for _, p := range s.principals {
		if pattern != "" {
			matched, err := doublestar.Match(pattern, p.Username)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		result = append(result, clonePrincipal(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *inMemoryStorage) FindByName(ctx context.Context, name string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("role %q: %w", name, ErrNotFound)
}

func (s *inMemoryStorage) FindRoleByID(ctx context.Context, id int64) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("role %d: %w", id, ErrNotFound)
	}
	return r, nil
}

func (s *inMemoryStorage) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// SaveRole creates or renames a role. A rename is propagated to the
// role references held by principals.
func (s *inMemoryStorage) SaveRole(ctx context.Context, r Role) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.roles {
		if existing.Name == r.Name && id != r.ID {
			return Role{}, fmt.Errorf("role %q: %w", r.Name, ErrConflict)
		}
	}
	if r.ID == 0 {
		s.nextRole++
		r.ID = s.nextRole
		s.roles[r.ID] = r
		return r, nil
	}
	if _, ok := s.roles[r.ID]; !ok {
		return Role{}, fmt.Errorf("role %d: %w", r.ID, ErrNotFound)
	}
	s.roles[r.ID] = r
	for _, principalID := range s.index.Holders(r.ID) {
		p := clonePrincipal(s.principals[principalID])
		for i := range p.Roles {
			if p.Roles[i].ID == r.ID {
				p.Roles[i].Name = r.Name
			}
		}
		s.principals[principalID] = p
	}
	return r, nil
}

func (s *inMemoryStorage) DeleteRole(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return fmt.Errorf("role %d: %w", id, ErrNotFound)
	}
	if s.index.Count(id) > 0 {
		return fmt.Errorf("role %d still assigned: %w", id, ErrConflict)
	}
	delete(s.roles, id)
	return nil
}

func (s *inMemoryStorage) Holders(ctx context.Context, roleID int64) ([]int64, error) {
	if _, err := s.FindRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.index.Holders(roleID), nil
}

func (s *inMemoryStorage) HolderCount(ctx context.Context, roleID int64) (int, error) {
	if _, err := s.FindRoleByID(ctx, roleID); err != nil {
		return 0, err
	}
	return s.index.Count(roleID), nil
}

func clonePrincipal(p Principal) Principal {
	roles := make([]RoleRef, len(p.Roles))
	copy(roles, p.Roles)
	p.Roles = roles
	return p
}

var (
	_ PrincipalStore = (*inMemoryStorage)(nil)
	_ RoleRegistry   = (*inMemoryStorage)(nil)
)
