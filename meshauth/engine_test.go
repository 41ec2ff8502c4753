package meshauth_test

import (
	"context"
	"testing"

	"github.com/pthm/meshauth/meshauth"
)

// memStore is a minimal in-memory meshauth.Store used to exercise the
// Engine without a database. It does not implement group-name
// validation; Engine is responsible for that.
type memStore struct {
	groups map[string]bool
	edges  map[string]meshauth.Edge // key: parent+"\x00"+child
}

func newMemStore() *memStore {
	return &memStore{groups: make(map[string]bool), edges: make(map[string]meshauth.Edge)}
}

func edgeKey(parent, child string) string { return parent + "\x00" + child }

func (m *memStore) GroupExists(_ context.Context, name string) (bool, error) {
	return m.groups[name], nil
}

func (m *memStore) InsertGroup(_ context.Context, name string) error {
	if m.groups[name] {
		return meshauth.ErrDuplicateGroup
	}
	m.groups[name] = true
	return nil
}

func (m *memStore) DeleteGroup(_ context.Context, name string) error {
	delete(m.groups, name)
	for k, e := range m.edges {
		if e.Parent == name || e.Child == name {
			delete(m.edges, k)
		}
	}
	return nil
}

func (m *memStore) InsertEdge(_ context.Context, e meshauth.Edge) error {
	k := edgeKey(e.Parent, e.Child)
	if _, ok := m.edges[k]; ok {
		return meshauth.ErrDuplicateEdge
	}
	m.edges[k] = e
	return nil
}

func (m *memStore) DeleteEdge(_ context.Context, e meshauth.Edge) error {
	k := edgeKey(e.Parent, e.Child)
	if existing, ok := m.edges[k]; ok && existing.Type == e.Type {
		delete(m.edges, k)
	}
	return nil
}

func (m *memStore) ListMembers(_ context.Context, group string) ([]meshauth.Edge, error) {
	var out []meshauth.Edge
	for _, e := range m.edges {
		if e.Parent == group {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListParents(_ context.Context, node string) ([]meshauth.Edge, error) {
	var out []meshauth.Edge
	for _, e := range m.edges {
		if e.Child == node {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ meshauth.Store = (*memStore)(nil)

// buildS4 wires up the literal scenario from the specification's S4 fixture:
// groups foo, bar, baz, qux; or(foo->bar); not(foo->baz); and(qux->bar);
// and(qux->baz); account leaves foo->1, bar->2, bar->3, baz->3, baz->4.
func buildS4(t *testing.T) (*meshauth.Engine, context.Context) {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()
	eng := meshauth.NewEngine(store)

	for _, g := range []string{"foo", "bar", "baz", "qux"} {
		if err := eng.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup(%s): %v", g, err)
		}
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	must(eng.AddSubgroup(ctx, "foo", "bar", meshauth.EdgeOr))
	must(eng.AddSubgroup(ctx, "foo", "baz", meshauth.EdgeNot))
	must(eng.AddSubgroup(ctx, "qux", "bar", meshauth.EdgeAnd))
	must(eng.AddSubgroup(ctx, "qux", "baz", meshauth.EdgeAnd))
	must(eng.AddMemberAccount(ctx, "foo", 1))
	must(eng.AddMemberAccount(ctx, "bar", 2))
	must(eng.AddMemberAccount(ctx, "bar", 3))
	must(eng.AddMemberAccount(ctx, "baz", 3))
	must(eng.AddMemberAccount(ctx, "baz", 4))

	return eng, ctx
}

func setEq[T comparable](t *testing.T, got meshauth.Set[T], want ...T) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("set size mismatch: got %v, want %v", got.Slice(), want)
	}
	for _, w := range want {
		if !got.Has(w) {
			t.Fatalf("missing %v in %v", w, got.Slice())
		}
	}
}

func TestS4_ComplexExpansion(t *testing.T) {
	eng, ctx := buildS4(t)

	foo, err := eng.ListAccounts(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}
	setEq(t, foo, meshauth.Account(1), meshauth.Account(2))

	qux, err := eng.ListAccounts(ctx, "qux")
	if err != nil {
		t.Fatal(err)
	}
	setEq(t, qux, meshauth.Account(3))

	memberships, err := eng.ListAccountMemberships(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	setEq(t, memberships, "bar", "baz", "qux")

	ancestorsOf2, err := eng.ListAncestors(ctx, "2")
	if err != nil {
		t.Fatal(err)
	}
	setEq(t, ancestorsOf2, "foo", "bar", "qux")
}

func TestS5_InvalidationOnDrop(t *testing.T) {
	eng, ctx := buildS4(t)

	if _, err := eng.ListAccounts(ctx, "qux"); err != nil {
		t.Fatal(err)
	}

	if err := eng.DropMemberAccount(ctx, "bar", 3); err != nil {
		t.Fatal(err)
	}

	qux, err := eng.ListAccounts(ctx, "qux")
	if err != nil {
		t.Fatal(err)
	}
	if len(qux) != 0 {
		t.Fatalf("expected qux to become empty after dropping bar->3, got %v", qux.Slice())
	}
}

func TestAddSubgroup_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	eng := meshauth.NewEngine(store)

	if err := eng.CreateGroup(ctx, "foo"); err != nil {
		t.Fatal(err)
	}
	if err := eng.CreateGroup(ctx, "bar"); err != nil {
		t.Fatal(err)
	}

	if err := eng.AddSubgroup(ctx, "foo", "bar", meshauth.EdgeOr); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := eng.AddSubgroup(ctx, "foo", "bar", meshauth.EdgeOr); err != nil {
		t.Fatalf("second add should be swallowed, got: %v", err)
	}

	members, err := eng.ListMembers(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatalf("expected exactly one edge after duplicate add, got %d", len(members))
	}
}

func TestCreateGroup_InvalidName(t *testing.T) {
	ctx := context.Background()
	eng := meshauth.NewEngine(newMemStore())

	err := eng.CreateGroup(ctx, "foo:bar")
	if !meshauth.Is(err, meshauth.KindInvalidGroupName) {
		t.Fatalf("expected KindInvalidGroupName, got %v", err)
	}
}

func TestListAccounts_CachedAndFreshAgree(t *testing.T) {
	eng, ctx := buildS4(t)

	cached, err := eng.ListAccounts(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}

	fresh := meshauth.NewEngine(newMemStoreFrom(t, eng, ctx))
	freshResult, err := fresh.ListAccounts(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}

	setEq(t, cached, freshResult.Slice()...)
}

// newMemStoreFrom rebuilds an identical store by replaying S4's setup,
// standing in for "a fresh, cache-cleared recomputation of the same" graph.
func newMemStoreFrom(t *testing.T, _ *meshauth.Engine, _ context.Context) *memStore {
	t.Helper()
	store := newMemStore()
	ctx := context.Background()
	tmp := meshauth.NewEngine(store)
	for _, g := range []string{"foo", "bar", "baz", "qux"} {
		_ = tmp.CreateGroup(ctx, g)
	}
	_ = tmp.AddSubgroup(ctx, "foo", "bar", meshauth.EdgeOr)
	_ = tmp.AddSubgroup(ctx, "foo", "baz", meshauth.EdgeNot)
	_ = tmp.AddSubgroup(ctx, "qux", "bar", meshauth.EdgeAnd)
	_ = tmp.AddSubgroup(ctx, "qux", "baz", meshauth.EdgeAnd)
	_ = tmp.AddMemberAccount(ctx, "foo", 1)
	_ = tmp.AddMemberAccount(ctx, "bar", 2)
	_ = tmp.AddMemberAccount(ctx, "bar", 3)
	_ = tmp.AddMemberAccount(ctx, "baz", 3)
	_ = tmp.AddMemberAccount(ctx, "baz", 4)
	return store
}

// TestListAccounts_SharedDescendantAcrossAndBranches exercises an
// acyclic topology where two sibling and-edges reconverge on the same
// descendant: top=and(a),and(b); a=or(c),account(10); b=and(c);
// c=account(5). This is not a cycle - c is reached twice along
// distinct paths from top - so each and-branch must see c's full,
// independently computed expansion rather than a short-circuited
// empty set left behind by the other branch's traversal.
func TestListAccounts_SharedDescendantAcrossAndBranches(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	eng := meshauth.NewEngine(store)

	for _, g := range []string{"top", "a", "b", "c"} {
		if err := eng.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup(%s): %v", g, err)
		}
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	must(eng.AddSubgroup(ctx, "top", "a", meshauth.EdgeAnd))
	must(eng.AddSubgroup(ctx, "top", "b", meshauth.EdgeAnd))
	must(eng.AddSubgroup(ctx, "a", "c", meshauth.EdgeOr))
	must(eng.AddMemberAccount(ctx, "a", 10))
	must(eng.AddSubgroup(ctx, "b", "c", meshauth.EdgeAnd))
	must(eng.AddMemberAccount(ctx, "c", 5))

	top, err := eng.ListAccounts(ctx, "top")
	if err != nil {
		t.Fatal(err)
	}
	setEq(t, top, meshauth.Account(5))
}

func TestDropGroup_ClearsMembersAndExistence(t *testing.T) {
	ctx := context.Background()
	eng := meshauth.NewEngine(newMemStore())

	if err := eng.CreateGroup(ctx, "foo"); err != nil {
		t.Fatal(err)
	}
	if err := eng.AddMemberAccount(ctx, "foo", 1); err != nil {
		t.Fatal(err)
	}

	if err := eng.DropGroup(ctx, "foo"); err != nil {
		t.Fatal(err)
	}

	exists, err := eng.GroupExists(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected foo to no longer exist")
	}

	members, err := eng.ListMembers(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members after drop, got %v", members)
	}
}
