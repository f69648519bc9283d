package authorization

import (
	"sort"
	"sync"
)

// HolderIndex maps role ids to the principals holding them. It is a
// derived view of principal role memberships and can be rebuilt from
// them at any time; principals stay the owners of their memberships.
type HolderIndex struct {
	mu          sync.RWMutex
	holders     map[int64]map[int64]struct{}
	memberships map[int64][]int64
}

func NewHolderIndex() *HolderIndex {
	return &HolderIndex{
		holders:     make(map[int64]map[int64]struct{}),
		memberships: make(map[int64][]int64),
	}
}

// Set replaces the memberships recorded for a principal.
func (idx *HolderIndex) Set(principalID int64, roles []RoleRef) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.set(principalID, roles)
}

func (idx *HolderIndex) set(principalID int64, roles []RoleRef) {
	idx.remove(principalID)
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		set, ok := idx.holders[r.ID]
		if !ok {
			set = make(map[int64]struct{})
			idx.holders[r.ID] = set
		}
		set[principalID] = struct{}{}
		ids = append(ids, r.ID)
	}
	idx.memberships[principalID] = ids
}

// Remove forgets every membership of a principal.
func (idx *HolderIndex) Remove(principalID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.remove(principalID)
}

func (idx *HolderIndex) remove(principalID int64) {
	for _, roleID := range idx.memberships[principalID] {
		if set, ok := idx.holders[roleID]; ok {
			delete(set, principalID)
			if len(set) == 0 {
				delete(idx.holders, roleID)
			}
		}
	}
	delete(idx.memberships, principalID)
}

// Rebuild discards the index and recomputes it from principals.
func (idx *HolderIndex) Rebuild(principals []Principal) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.holders = make(map[int64]map[int64]struct{})
	idx.memberships = make(map[int64][]int64)
	for _, p := range principals {
		idx.set(p.ID, p.Roles)
	}
}

// Holders returns the sorted ids of principals holding roleID.
func (idx *HolderIndex) Holders(roleID int64) []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set := idx.holders[roleID]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (idx *HolderIndex) Count(roleID int64) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.holders[roleID])
}
