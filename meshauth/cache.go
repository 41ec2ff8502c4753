package meshauth

import "sync"

// ExpansionCache memoizes the three recursive expansion functions the
// Engine exposes. Implementations must be safe for concurrent use:
// the Engine holds its own write-lock around mutation + invalidation,
// but concurrent readers may call Get/Set for different keys at any
// time.
//
// The default implementation, NewMapCache, is an unbounded map guarded
// by a mutex - adequate for the graph sizes this design targets. The
// root module's lrucache package provides a bounded alternative built on hashicorp/golang-lru for deployments with very
// large or long-lived graphs.
type ExpansionCache interface {
	GetAccounts(group string) (Set[Account], bool)
	SetAccounts(group string, s Set[Account])
	InvalidateAccounts(keys ...string)

	GetDescendants(node string) (Set[string], bool)
	SetDescendants(node string, s Set[string])
	InvalidateDescendants(keys ...string)

	GetAncestors(node string) (Set[string], bool)
	SetAncestors(node string, s Set[string])
	InvalidateAncestors(keys ...string)

	// Flush clears every entry in all three maps. Used by mutations
	// that cannot identify specific endpoints (drop_group, bulk loads).
	Flush()
}

// MapCache is the default ExpansionCache: three maps guarded by one
// mutex. Entries never expire on their own; they are only removed by
// explicit invalidation.
type MapCache struct {
	mu          sync.RWMutex
	accounts    map[string]Set[Account]
	descendants map[string]Set[string]
	ancestors   map[string]Set[string]
}

// NewMapCache constructs an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{
		accounts:    make(map[string]Set[Account]),
		descendants: make(map[string]Set[string]),
		ancestors:   make(map[string]Set[string]),
	}
}

// GetAccounts returns the memoized account-expansion for group, if present.
func (c *MapCache) GetAccounts(group string) (Set[Account], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.accounts[group]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SetAccounts stores the account-expansion for group.
func (c *MapCache) SetAccounts(group string, s Set[Account]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[group] = s.Clone()
}

// InvalidateAccounts removes the given keys from the account-expansion map.
func (c *MapCache) InvalidateAccounts(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.accounts, k)
	}
}

// GetDescendants returns the memoized descendant set for node, if present.
func (c *MapCache) GetDescendants(node string) (Set[string], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.descendants[node]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SetDescendants stores the descendant set for node.
func (c *MapCache) SetDescendants(node string, s Set[string]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descendants[node] = s.Clone()
}

// InvalidateDescendants removes the given keys from the descendant map.
func (c *MapCache) InvalidateDescendants(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.descendants, k)
	}
}

// GetAncestors returns the memoized ancestor set for node, if present.
func (c *MapCache) GetAncestors(node string) (Set[string], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.ancestors[node]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SetAncestors stores the ancestor set for node.
func (c *MapCache) SetAncestors(node string, s Set[string]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ancestors[node] = s.Clone()
}

// InvalidateAncestors removes the given keys from the ancestor map.
func (c *MapCache) InvalidateAncestors(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.ancestors, k)
	}
}

// Flush clears all three maps.
func (c *MapCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = make(map[string]Set[Account])
	c.descendants = make(map[string]Set[string])
	c.ancestors = make(map[string]Set[string])
}

// Ensure MapCache implements ExpansionCache.
var _ ExpansionCache = (*MapCache)(nil)
