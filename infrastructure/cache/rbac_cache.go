package cache

import (
	"sort"
	"sync"
)

// Resource maps a permission code to a route it guards.
type Resource struct {
	PermissionCode string
	Path           string
	Method         string
}

// RbacRolesCache holds the role to permission grants and the route table.
// Grants are loaded lazily and dropped by Invalidate; the route table is
// filled once at router construction.
type RbacRolesCache struct {
	mu        sync.RWMutex
	loaded    bool
	gen       uint64
	grants    map[string]map[string]struct{}
	resources []Resource
	allCodes  map[string]struct{}
}

func NewRbacRolesCache() *RbacRolesCache {
	return &RbacRolesCache{
		grants:   make(map[string]map[string]struct{}),
		allCodes: make(map[string]struct{}),
	}
}

// AddResource registers a guarded route.
func (c *RbacRolesCache) AddResource(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, r)
	c.allCodes[r.PermissionCode] = struct{}{}
}

// Resources returns a copy of the route table.
func (c *RbacRolesCache) Resources() []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// CodesSorted lists every permission code used by a registered route.
func (c *RbacRolesCache) CodesSorted() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.allCodes))
	for name := range c.allCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generation changes on every Invalidate. Capture it before reading grants
// from the database and pass it to SetGrants.
func (c *RbacRolesCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetGrants replaces the cached grants and marks the cache loaded. A load
// read under an older generation is discarded and SetGrants returns false.
func (c *RbacRolesCache) SetGrants(gen uint64, grants map[string][]string) bool {
	next := make(map[string]map[string]struct{}, len(grants))
	for role, perms := range grants {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		next[role] = set
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.grants = next
	c.loaded = true
	return true
}

// Grants returns a copy of the cached grants and whether they are loaded.
func (c *RbacRolesCache) Grants() (map[string][]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	out := make(map[string][]string, len(c.grants))
	for role, set := range c.grants {
		perms := make([]string, 0, len(set))
		for p := range set {
			perms = append(perms, p)
		}
		sort.Strings(perms)
		out[role] = perms
	}
	return out, true
}

// Has reports whether role holds perm. ok is false when grants are not loaded.
func (c *RbacRolesCache) Has(role, perm string) (has bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return false, false
	}
	_, has = c.grants[role][perm]
	return has, true
}

// Invalidate forces the next lookup to reload grants.
func (c *RbacRolesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.loaded = false
	c.grants = make(map[string]map[string]struct{})
}
