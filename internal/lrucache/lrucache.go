// Package lrucache provides a bounded, eviction-capable
// meshauth.ExpansionCache backed by hashicorp/golang-lru. The
// zero-dependency meshauth module only ships an unbounded map cache;
// deployments with very large or long-lived graphs can opt into this
// one instead via meshauth.WithCache.
package lrucache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pthm/meshauth/meshauth"
)

// Cache is a meshauth.ExpansionCache with a fixed maximum number of
// entries per expansion map, evicting least-recently-used entries once
// full.
type Cache struct {
	accounts    *lru.Cache[string, meshauth.Set[meshauth.Account]]
	descendants *lru.Cache[string, meshauth.Set[string]]
	ancestors   *lru.Cache[string, meshauth.Set[string]]
}

// New constructs a Cache holding up to size entries per expansion map.
func New(size int) (*Cache, error) {
	accounts, err := lru.New[string, meshauth.Set[meshauth.Account]](size)
	if err != nil {
		return nil, err
	}
	descendants, err := lru.New[string, meshauth.Set[string]](size)
	if err != nil {
		return nil, err
	}
	ancestors, err := lru.New[string, meshauth.Set[string]](size)
	if err != nil {
		return nil, err
	}
	return &Cache{accounts: accounts, descendants: descendants, ancestors: ancestors}, nil
}

func (c *Cache) GetAccounts(group string) (meshauth.Set[meshauth.Account], bool) {
	s, ok := c.accounts.Get(group)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *Cache) SetAccounts(group string, s meshauth.Set[meshauth.Account]) {
	c.accounts.Add(group, s.Clone())
}

func (c *Cache) InvalidateAccounts(keys ...string) {
	for _, k := range keys {
		c.accounts.Remove(k)
	}
}

func (c *Cache) GetDescendants(node string) (meshauth.Set[string], bool) {
	s, ok := c.descendants.Get(node)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *Cache) SetDescendants(node string, s meshauth.Set[string]) {
	c.descendants.Add(node, s.Clone())
}

func (c *Cache) InvalidateDescendants(keys ...string) {
	for _, k := range keys {
		c.descendants.Remove(k)
	}
}

func (c *Cache) GetAncestors(node string) (meshauth.Set[string], bool) {
	s, ok := c.ancestors.Get(node)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *Cache) SetAncestors(node string, s meshauth.Set[string]) {
	c.ancestors.Add(node, s.Clone())
}

func (c *Cache) InvalidateAncestors(keys ...string) {
	for _, k := range keys {
		c.ancestors.Remove(k)
	}
}

// Flush purges all three maps.
func (c *Cache) Flush() {
	c.accounts.Purge()
	c.descendants.Purge()
	c.ancestors.Purge()
}

var _ meshauth.ExpansionCache = (*Cache)(nil)
