// Package meshauth provides the group membership engine: a typed edge
// graph over groups and accounts, a recursive account-expansion algebra,
// and the memoization layer that keeps expansions cheap to recompute.
//
// # Module Structure
//
// This is the zero-dependency runtime module
// (github.com/pthm/meshauth/meshauth). It has no external requirements
// (stdlib only) and exposes the Engine that every other component of
// the root module (github.com/pthm/meshauth) builds on.
//
// The root module wires the Engine to a persistence adapter (Postgres
// via pgx), an account/authenticator store, a rule store and evaluator,
// and a CLI. Applications that only need in-process membership logic
// (e.g. to embed in a larger service) can import this module alone.
//
// # Core Concepts
//
// A Group is a named node in the membership graph. An Account is an
// opaque integer identity. Edges connect a parent group to a child,
// where the child is either another group or an account leaf:
//
//	eng.AddSubgroup(ctx, "engineering", "backend", meshauth.EdgeOr)
//	eng.AddMemberAccount(ctx, "backend", 42)
//
// # Expansion algebra
//
// ListAccounts folds a group's direct edges: Or and Account edges
// union into the member set, And edges intersect, Not edges prune.
// See the package-level Engine.ListAccounts documentation for the
// exact fold.
//
// # Caching
//
// The Engine memoizes ListAccounts, ListDescendants and ListAncestors
// behind a pluggable ExpansionCache. The default, returned by
// NewMapCache, is an in-memory map guarded by a mutex. Applications
// that want bounded memory or eviction metrics can supply their own
// (see the root module's lrucache package for an LRU-backed one):
//
//	eng := meshauth.NewEngine(store, meshauth.WithCache(myCache))
package meshauth

import "context"

// Account is an opaque integer account identity.
type Account int64

// EdgeType is the typed relationship between a parent group and a child.
type EdgeType string

const (
	// EdgeOr contributes its child's expansion to the union.
	EdgeOr EdgeType = "or"
	// EdgeAnd contributes its child's expansion to the intersection.
	EdgeAnd EdgeType = "and"
	// EdgeNot contributes its child's expansion to the prune set.
	EdgeNot EdgeType = "not"
	// EdgeAccount marks the child as a decimal account id leaf.
	EdgeAccount EdgeType = "account"
)

// Edge is a single row of the group_members relation: a typed,
// directed relationship from a parent group to a child, where child is
// either another group's name or the decimal string form of an
// account id (when Type is EdgeAccount).
type Edge struct {
	Parent string
	Child  string
	Type   EdgeType
}

// Store is the persistence contract the Engine needs from the edge
// graph. Implementations must enforce uniqueness of (parent, child)
// regardless of edgetype, and must report duplicate inserts via
// ErrDuplicateEdge so the Engine can treat add_subgroup as idempotent.
type Store interface {
	// GroupExists reports whether a group with the given name has been created.
	GroupExists(ctx context.Context, name string) (bool, error)

	// InsertGroup creates a group row. Returns ErrDuplicateGroup if name exists.
	InsertGroup(ctx context.Context, name string) error

	// DeleteGroup removes the group row and every edge with parent = name
	// or child = name, transactionally.
	DeleteGroup(ctx context.Context, name string) error

	// InsertEdge adds (parent, child, edgetype). Returns ErrDuplicateEdge if
	// (parent, child) already exists under any edgetype. It need not check
	// that parent exists; Engine.AddSubgroup does that before calling it.
	InsertEdge(ctx context.Context, e Edge) error

	// DeleteEdge removes the exact (parent, child, edgetype) row, if present.
	DeleteEdge(ctx context.Context, e Edge) error

	// ListMembers returns the direct edges with parent = group.
	ListMembers(ctx context.Context, group string) ([]Edge, error)

	// ListParents returns the direct edges with child = node, i.e. the
	// edges whose traversal in the reverse direction reaches node.
	ListParents(ctx context.Context, node string) ([]Edge, error)
}
