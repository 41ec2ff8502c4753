package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/meshauth/internal/rules"
	"github.com/pthm/meshauth/internal/verifier"
	"github.com/pthm/meshauth/meshauth"
	"github.com/pthm/meshauth/service"
	"github.com/pthm/meshauth/test/testutil"
)

func newService(t *testing.T) *service.Service {
	t.Helper()
	adapter := testutil.Adapter(t)
	svc, err := service.New(adapter, service.Options{AllowPlaintext: true})
	require.NoError(t, err)
	return svc
}

// S1 — account/auth cascade.
func TestAccountAuthenticatorCascade(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	account, err := svc.CreateAccount(ctx)
	require.NoError(t, err)

	hash, err := verifier.HashBcrypt("bar")
	require.NoError(t, err)
	require.NoError(t, svc.CreateAuthenticator(ctx, "foo", hash, account))

	ok, err := svc.Authenticate(ctx, "foo", "bar")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.DropAccount(ctx, account))

	ok, err = svc.Authenticate(ctx, "foo", "bar")
	require.NoError(t, err)
	assert.False(t, ok)
}

// S2 — duplicate authenticator name.
func TestDuplicateAuthenticatorName(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	account, err := svc.CreateAccount(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.CreateAuthenticator(ctx, "foo", "plaintext:x", account))
	err = svc.CreateAuthenticator(ctx, "foo", "plaintext:y", account)
	require.Error(t, err)
}

// S3 — invalid group name.
func TestInvalidGroupName(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	err := svc.Engine.CreateGroup(ctx, "foo:bar")
	require.Error(t, err)

	var merr *meshauth.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, meshauth.KindInvalidGroupName, merr.Kind)
}

// S4/S5 — complex expansion and invalidation, taken verbatim from the
// scenario in the membership-engine design.
func TestExpansionAndInvalidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	engine := svc.Engine

	for _, g := range []string{"foo", "bar", "baz", "qux"} {
		require.NoError(t, engine.CreateGroup(ctx, g))
	}

	require.NoError(t, engine.AddSubgroup(ctx, "foo", "bar", meshauth.EdgeOr))
	require.NoError(t, engine.AddSubgroup(ctx, "foo", "baz", meshauth.EdgeNot))
	require.NoError(t, engine.AddSubgroup(ctx, "qux", "bar", meshauth.EdgeAnd))
	require.NoError(t, engine.AddSubgroup(ctx, "qux", "baz", meshauth.EdgeAnd))

	require.NoError(t, engine.AddMemberAccount(ctx, "foo", 1))
	require.NoError(t, engine.AddMemberAccount(ctx, "bar", 2))
	require.NoError(t, engine.AddMemberAccount(ctx, "bar", 3))
	require.NoError(t, engine.AddMemberAccount(ctx, "baz", 3))
	require.NoError(t, engine.AddMemberAccount(ctx, "baz", 4))

	fooAccounts, err := engine.ListAccounts(ctx, "foo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []meshauth.Account{1, 2}, fooAccounts.Slice())

	quxAccounts, err := engine.ListAccounts(ctx, "qux")
	require.NoError(t, err)
	assert.ElementsMatch(t, []meshauth.Account{3}, quxAccounts.Slice())

	memberships, err := engine.ListAccountMemberships(ctx, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bar", "baz", "qux"}, memberships.Slice())

	ancestorsOf2, err := engine.ListAncestors(ctx, "2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foo", "bar", "qux"}, ancestorsOf2.Slice())

	// S5: removing account 3 from bar collapses qux's intersection to empty,
	// without any manual cache clear.
	require.NoError(t, engine.DropMemberAccount(ctx, "bar", 3))

	quxAccounts, err = engine.ListAccounts(ctx, "qux")
	require.NoError(t, err)
	assert.Empty(t, quxAccounts.Slice())
}

// S6 — rule evaluation.
func TestRuleEvaluation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.Engine.CreateGroup(ctx, "foo"))
	_, err := svc.CreateRule(ctx, "foo", rules.ActionDeny, "always", "")
	require.NoError(t, err)

	result, err := svc.EvaluateRules(ctx, "foo", rules.Entity{})
	require.NoError(t, err)
	assert.Equal(t, rules.ResultDeny, result)

	result, err = svc.EvaluateRules(ctx, "bar", rules.Entity{})
	require.NoError(t, err)
	assert.Equal(t, rules.ResultIgnore, result)
}

func TestBulkLoadManifest(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	const doc = `
groups:
  - engineering
  - on-call
edges:
  - parent: engineering
    child: on-call
    type: or
  - parent: on-call
    account: 42
`
	require.NoError(t, svc.LoadManifest(ctx, []byte(doc)))

	accounts, err := svc.Engine.ListAccounts(ctx, "engineering")
	require.NoError(t, err)
	assert.Contains(t, accounts.Slice(), meshauth.Account(42))
}
