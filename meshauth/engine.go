package meshauth

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
)

var groupNamePattern = regexp.MustCompile(`^[a-z-]+$`)

// Engine owns the typed edge graph and the three expansion caches that
// memoize account-expansion, descendant-set and ancestor-set queries.
// It is the sole core of the design: every other component (accounts,
// authenticators, rules) is a thin persisted layer this package does
// not know about.
//
// An Engine instance, not a package-level global, owns its caches -
// callers that need isolated graphs (e.g. per-tenant, or per-test) can
// construct as many Engines as they like over independent Stores.
//
// All mutating methods take a single write-lock spanning {compute the
// pre-mutation invalidation set -> write to the store -> clear the
// affected cache entries}, so a reader that observes a mutation's
// effects in the store always also observes the invalidated cache.
type Engine struct {
	store Store
	cache ExpansionCache
	mu    sync.Mutex
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCache supplies an ExpansionCache other than the default MapCache.
func WithCache(c ExpansionCache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine constructs an Engine backed by store. Without WithCache, a
// fresh MapCache is used.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, cache: NewMapCache()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateGroup validates name against ^[a-z-]+$ and inserts it.
func (e *Engine) CreateGroup(ctx context.Context, name string) error {
	if !groupNamePattern.MatchString(name) {
		return NewError(KindInvalidGroupName, "CreateGroup", "group name must match ^[a-z-]+$: "+name, nil)
	}
	if err := e.store.InsertGroup(ctx, name); err != nil {
		if errors.Is(err, ErrDuplicateGroup) {
			return NewError(KindDuplicateGroup, "CreateGroup", "group '"+name+"' already exists", err)
		}
		return NewError(KindStorage, "CreateGroup", "inserting group", err)
	}
	return nil
}

// DropGroup deletes the group row and every edge mentioning it as
// parent or child, then performs the conservative invalidation
// strategy: a full flush of all three caches, since a group drop may
// sever an unbounded number of edges whose individual endpoints are
// not all cheaply enumerable before the delete.
func (e *Engine) DropGroup(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.DeleteGroup(ctx, name); err != nil {
		return NewError(KindStorage, "DropGroup", "deleting group", err)
	}
	e.cache.Flush()
	return nil
}

// AddSubgroup inserts edge (parent, child, edgetype), defaulting to
// EdgeOr when edgetype is empty. A duplicate (parent, child) pair is
// swallowed silently: add_subgroup is idempotent by design.
func (e *Engine) AddSubgroup(ctx context.Context, parent, child string, edgetype EdgeType) error {
	if edgetype == "" {
		edgetype = EdgeOr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.store.GroupExists(ctx, parent)
	if err != nil {
		return NewError(KindStorage, "AddSubgroup", "checking parent existence", err)
	}
	if !exists {
		return NewError(KindUnknownGroup, "AddSubgroup", "parent group '"+parent+"' does not exist", nil)
	}

	if err := e.invalidateForMutationLocked(ctx, parent, child); err != nil {
		return err
	}

	err = e.store.InsertEdge(ctx, Edge{Parent: parent, Child: child, Type: edgetype})
	if err != nil && !errors.Is(err, ErrDuplicateEdge) {
		return NewError(KindStorage, "AddSubgroup", "inserting edge", err)
	}
	return nil
}

// DropSubgroup deletes the exact (parent, child, edgetype) row. A
// missing row is not an error.
func (e *Engine) DropSubgroup(ctx context.Context, parent, child string, edgetype EdgeType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.invalidateForMutationLocked(ctx, parent, child); err != nil {
		return err
	}

	if err := e.store.DeleteEdge(ctx, Edge{Parent: parent, Child: child, Type: edgetype}); err != nil {
		return NewError(KindStorage, "DropSubgroup", "deleting edge", err)
	}
	return nil
}

// AddMemberAccount is AddSubgroup(group, decimal(account), EdgeAccount).
func (e *Engine) AddMemberAccount(ctx context.Context, group string, account Account) error {
	return e.AddSubgroup(ctx, group, strconv.FormatInt(int64(account), 10), EdgeAccount)
}

// DropMemberAccount is DropSubgroup(group, decimal(account), EdgeAccount).
func (e *Engine) DropMemberAccount(ctx context.Context, group string, account Account) error {
	return e.DropSubgroup(ctx, group, strconv.FormatInt(int64(account), 10), EdgeAccount)
}

// GroupExists reports whether a group with the given name has been created.
func (e *Engine) GroupExists(ctx context.Context, name string) (bool, error) {
	ok, err := e.store.GroupExists(ctx, name)
	if err != nil {
		return false, NewError(KindStorage, "GroupExists", "querying group", err)
	}
	return ok, nil
}

// ListMembers returns the direct edges of group, empty for an unknown group.
func (e *Engine) ListMembers(ctx context.Context, group string) ([]Edge, error) {
	edges, err := e.store.ListMembers(ctx, group)
	if err != nil {
		return nil, NewError(KindStorage, "ListMembers", "querying members", err)
	}
	return edges, nil
}

// IsMember reports whether any edge (group, child, *) exists.
func (e *Engine) IsMember(ctx context.Context, group, child string) (bool, error) {
	edges, err := e.ListMembers(ctx, group)
	if err != nil {
		return false, err
	}
	for _, ed := range edges {
		if ed.Child == child {
			return true, nil
		}
	}
	return false, nil
}

// invalidateForMutationLocked computes U and D from the pre-mutation
// graph and clears the affected cache slices. Caller must hold e.mu.
//
//	U = ancestors(parent) ∪ {parent}   -- invalidates AccountExpansions, DescendantExpansions
//	D = descendants(child) ∪ {child}   -- invalidates AncestorExpansions
func (e *Engine) invalidateForMutationLocked(ctx context.Context, parent, child string) error {
	upward, err := e.listAncestorsUncached(ctx, parent, make(map[string]bool))
	if err != nil {
		return err
	}
	upward.Add(parent)

	downward, err := e.listDescendantsUncached(ctx, child, make(map[string]bool))
	if err != nil {
		return err
	}
	downward.Add(child)

	e.cache.InvalidateAccounts(upward.Slice()...)
	e.cache.InvalidateDescendants(upward.Slice()...)
	e.cache.InvalidateAncestors(downward.Slice()...)
	return nil
}

// ListDescendants returns every node transitively reachable by
// following parent -> child edges from node, regardless of edgetype.
func (e *Engine) ListDescendants(ctx context.Context, node string) (Set[string], error) {
	if s, ok := e.cache.GetDescendants(node); ok {
		return s, nil
	}
	s, err := e.listDescendantsUncached(ctx, node, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	e.cache.SetDescendants(node, s)
	return s.Clone(), nil
}

func (e *Engine) listDescendantsUncached(ctx context.Context, node string, visiting map[string]bool) (Set[string], error) {
	if visiting[node] {
		return NewSet[string](), nil
	}
	visiting[node] = true
	defer delete(visiting, node)

	edges, err := e.store.ListMembers(ctx, node)
	if err != nil {
		return nil, NewError(KindStorage, "ListDescendants", "listing members", err)
	}

	result := NewSet[string]()
	for _, ed := range edges {
		result.Add(ed.Child)
		sub, err := e.listDescendantsUncached(ctx, ed.Child, visiting)
		if err != nil {
			return nil, err
		}
		for k := range sub {
			result.Add(k)
		}
	}
	return result, nil
}

// ListAncestors returns every node from which node is reachable
// following parent -> child edges; symmetric to ListDescendants.
func (e *Engine) ListAncestors(ctx context.Context, node string) (Set[string], error) {
	if s, ok := e.cache.GetAncestors(node); ok {
		return s, nil
	}
	s, err := e.listAncestorsUncached(ctx, node, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	e.cache.SetAncestors(node, s)
	return s.Clone(), nil
}

func (e *Engine) listAncestorsUncached(ctx context.Context, node string, visiting map[string]bool) (Set[string], error) {
	if visiting[node] {
		return NewSet[string](), nil
	}
	visiting[node] = true
	defer delete(visiting, node)

	edges, err := e.store.ListParents(ctx, node)
	if err != nil {
		return nil, NewError(KindStorage, "ListAncestors", "listing parents", err)
	}

	result := NewSet[string]()
	for _, ed := range edges {
		result.Add(ed.Parent)
		sup, err := e.listAncestorsUncached(ctx, ed.Parent, visiting)
		if err != nil {
			return nil, err
		}
		for k := range sup {
			result.Add(k)
		}
	}
	return result, nil
}

// ListAccounts computes the effective account membership of group by
// folding its direct edges:
//
//	U = union of accounts contributed by or-edges and account-edges
//	I = intersection of accounts contributed by and-edges (∅ if none)
//	P = union of accounts contributed by not-edges
//	ListAccounts(group) = (U ∪ I) \ P
//
// Pruning is local to the group's own fold: a not-edge at a parent
// does not prune accounts contributed through unrelated ancestors.
// Cyclic edges terminate via a path-local visited set (cleared on
// backtrack) that short-circuits re-entrance to the empty set. The
// set must be path-local rather than query-global: and-edges fold by
// intersecting recursively-computed sets, so two sibling branches that
// happen to reconverge on the same descendant (an ordinary acyclic
// topology, not a cycle) must each recompute that descendant's full
// expansion rather than have the second branch see a stale
// short-circuit left behind by the first.
func (e *Engine) ListAccounts(ctx context.Context, group string) (Set[Account], error) {
	if s, ok := e.cache.GetAccounts(group); ok {
		return s, nil
	}
	s, err := e.listAccountsUncached(ctx, group, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	e.cache.SetAccounts(group, s)
	return s.Clone(), nil
}

func (e *Engine) listAccountsUncached(ctx context.Context, group string, visiting map[string]bool) (Set[Account], error) {
	if visiting[group] {
		return NewSet[Account](), nil
	}
	visiting[group] = true
	defer delete(visiting, group)

	edges, err := e.store.ListMembers(ctx, group)
	if err != nil {
		return nil, NewError(KindStorage, "ListAccounts", "listing members", err)
	}

	union := NewSet[Account]()
	prune := NewSet[Account]()
	var andSets []Set[Account]

	for _, ed := range edges {
		switch ed.Type {
		case EdgeAccount:
			id, perr := strconv.ParseInt(ed.Child, 10, 64)
			if perr != nil {
				return nil, NewError(KindStorage, "ListAccounts", "account edge child is not a decimal integer: "+ed.Child, perr)
			}
			union.Add(Account(id))
		case EdgeOr:
			sub, serr := e.listAccountsUncached(ctx, ed.Child, visiting)
			if serr != nil {
				return nil, serr
			}
			for k := range sub {
				union.Add(k)
			}
		case EdgeAnd:
			sub, serr := e.listAccountsUncached(ctx, ed.Child, visiting)
			if serr != nil {
				return nil, serr
			}
			andSets = append(andSets, sub)
		case EdgeNot:
			sub, serr := e.listAccountsUncached(ctx, ed.Child, visiting)
			if serr != nil {
				return nil, serr
			}
			for k := range sub {
				prune.Add(k)
			}
		default:
			return nil, NewError(KindUnknownEdgeType, "ListAccounts", "unknown edgetype '"+string(ed.Type)+"' on edge "+group+"->"+ed.Child, nil)
		}
	}

	return Diff(Union(union, Intersect(andSets...)), prune), nil
}

// BulkLoad inserts groups and edges outside the normal per-mutation
// invalidation path and performs a single full cache flush at the end.
// Mutations of this shape cannot cheaply identify the endpoints a
// targeted invalidation would need (the whole point of a bulk load is
// that the pre-mutation ancestor/descendant sets are not worth
// computing one edge at a time), so the conservative strategy applies.
// Group rows are inserted before edges so that AddSubgroup-style
// parent-existence checks are unnecessary; a duplicate group or edge
// is swallowed, matching CreateGroup/AddSubgroup idempotency.
func (e *Engine) BulkLoad(ctx context.Context, groups []string, edges []Edge) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range groups {
		if !groupNamePattern.MatchString(name) {
			return NewError(KindInvalidGroupName, "BulkLoad", "group name must match ^[a-z-]+$: "+name, nil)
		}
		if err := e.store.InsertGroup(ctx, name); err != nil && !errors.Is(err, ErrDuplicateGroup) {
			return NewError(KindStorage, "BulkLoad", "inserting group '"+name+"'", err)
		}
	}

	for _, ed := range edges {
		if ed.Type == "" {
			ed.Type = EdgeOr
		}
		if err := e.store.InsertEdge(ctx, ed); err != nil && !errors.Is(err, ErrDuplicateEdge) {
			return NewError(KindStorage, "BulkLoad", "inserting edge "+ed.Parent+"->"+ed.Child, err)
		}
	}

	e.cache.Flush()
	return nil
}

// IsMemberAccount reports whether account is an effective member of group.
func (e *Engine) IsMemberAccount(ctx context.Context, group string, account Account) (bool, error) {
	s, err := e.ListAccounts(ctx, group)
	if err != nil {
		return false, err
	}
	return s.Has(account), nil
}

// ListAccountMemberships returns every group of which account is an
// effective member: the groups reachable as ancestors of the account's
// leaf node whose own ListAccounts still contains account. The filter
// is essential because the ancestor set includes groups that prune
// the account via not-edges.
func (e *Engine) ListAccountMemberships(ctx context.Context, account Account) (Set[string], error) {
	leaf := strconv.FormatInt(int64(account), 10)
	ancestors, err := e.ListAncestors(ctx, leaf)
	if err != nil {
		return nil, err
	}

	out := NewSet[string]()
	for group := range ancestors {
		ok, err := e.IsMemberAccount(ctx, group, account)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Add(group)
		}
	}
	return out, nil
}
