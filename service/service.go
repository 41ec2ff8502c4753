// Package service assembles the persisted layers (accounts,
// authenticators, groups, rules) around a meshauth.Engine into the one
// entry point applications embed. It owns nothing the individual
// layers don't already own; its job is wiring and consistent error
// mapping, not new logic.
//
// Example usage on application startup:
//
//	adapter, _ := pgxstore.Open(ctx, cfg.Database.URL)
//	svc, _ := service.New(adapter, service.Options{CacheSize: cfg.Cache.Size})
//	if err := svc.ApplySchema(ctx); err != nil {
//	    log.Fatalf("schema: %v", err)
//	}
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm/meshauth/internal/lrucache"
	"github.com/pthm/meshauth/internal/manifest"
	"github.com/pthm/meshauth/internal/pgxstore"
	"github.com/pthm/meshauth/internal/rules"
	"github.com/pthm/meshauth/internal/verifier"
	"github.com/pthm/meshauth/meshauth"
)

// Options configures a Service at construction time.
type Options struct {
	// CacheSize, when non-zero, selects the bounded LRU expansion cache
	// instead of the default unbounded map cache.
	CacheSize int
	// AllowPlaintext enables the plaintext authenticator verifier
	// scheme. Must stay false outside test fixtures.
	AllowPlaintext bool
}

// Service is the public surface wrapping the group-membership engine,
// the rule evaluator, and the account/authenticator stores over a
// single Postgres-backed Adapter.
type Service struct {
	Engine    *meshauth.Engine
	Rules     *rules.Evaluator
	Verifiers *verifier.Registry
	adapter   *pgxstore.Adapter
	accounts  *pgxstore.AccountStore
	authns    *pgxstore.AuthenticatorStore
	ruleStore *pgxstore.RuleStore
}

// New assembles a Service over adapter. The group-existence checks the
// rule evaluator needs are served by the engine's GroupExists, over the
// same GroupStore the engine uses, so CreateRule's UnknownGroup
// validation agrees with the engine.
func New(adapter *pgxstore.Adapter, opts Options) (*Service, error) {
	verifiers := verifier.NewRegistry()
	if opts.AllowPlaintext {
		verifiers.EnablePlaintext()
	}

	groupStore := pgxstore.NewGroupStore(adapter)

	var cache meshauth.ExpansionCache
	if opts.CacheSize > 0 {
		lc, err := lrucache.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("constructing lru cache: %w", err)
		}
		cache = lc
	}

	var engineOpts []meshauth.Option
	if cache != nil {
		engineOpts = append(engineOpts, meshauth.WithCache(cache))
	}
	engine := meshauth.NewEngine(groupStore, engineOpts...)

	ruleStore := pgxstore.NewRuleStore(adapter)
	evaluator := rules.NewEvaluator(ruleStore, &groupChecker{engine: engine})

	return &Service{
		Engine:    engine,
		Rules:     evaluator,
		Verifiers: verifiers,
		adapter:   adapter,
		accounts:  pgxstore.NewAccountStore(adapter),
		authns:    pgxstore.NewAuthenticatorStore(adapter),
		ruleStore: ruleStore,
	}, nil
}

// ListRules returns group's rules ordered by Order ascending.
func (s *Service) ListRules(ctx context.Context, group string) ([]rules.Rule, error) {
	return s.ruleStore.ListRules(ctx, group)
}

// groupChecker adapts Engine.GroupExists to rules.GroupChecker.
type groupChecker struct {
	engine *meshauth.Engine
}

func (g *groupChecker) GroupExists(ctx context.Context, name string) (bool, error) {
	return g.engine.GroupExists(ctx, name)
}

// ApplySchema creates the accounts/authenticators/groups/group_members/
// rules tables if they do not already exist. Safe to call on every
// application startup.
func (s *Service) ApplySchema(ctx context.Context) error {
	return s.adapter.ApplySchema(ctx)
}

// LoadManifest applies a YAML bulk-load document (see package
// manifest) to the engine in one operation, flushing every cache
// exactly once regardless of document size.
func (s *Service) LoadManifest(ctx context.Context, data []byte) error {
	return manifest.Apply(ctx, s.Engine, data)
}

// CreateAccount inserts a new account and returns its generated id.
func (s *Service) CreateAccount(ctx context.Context) (meshauth.Account, error) {
	id, err := s.accounts.CreateAccount(ctx)
	if err != nil {
		return 0, err
	}
	return meshauth.Account(id), nil
}

// DropAccount deletes an account and its authenticators.
func (s *Service) DropAccount(ctx context.Context, account meshauth.Account) error {
	return s.accounts.DropAccount(ctx, int64(account))
}

// CreateAuthenticator registers a new authenticator under the
// globally-unique name, bound to account, storing credential as-is
// (already scheme:payload formatted by the caller, e.g. via
// verifier.HashBcrypt). A name collision is reported as a
// meshauth.KindDuplicateName error wrapping pgxstore.ErrDuplicateName.
func (s *Service) CreateAuthenticator(ctx context.Context, name, credential string, account meshauth.Account) error {
	err := s.authns.CreateAuthenticator(ctx, name, credential, int64(account))
	if errors.Is(err, pgxstore.ErrDuplicateName) {
		return meshauth.NewError(meshauth.KindDuplicateName, "CreateAuthenticator", "authenticator '"+name+"' already exists", err)
	}
	return err
}

// DropAuthenticator removes a named authenticator.
func (s *Service) DropAuthenticator(ctx context.Context, name string) error {
	return s.authns.DropAuthenticator(ctx, name)
}

// Authenticate verifies password against the named authenticator's
// stored verifier using the scheme-dispatching registry. A missing
// authenticator is not an error: per spec, "select verifier by name;
// if none, return false" (this is what lets a dropped account's
// authenticator fail verification instead of erroring).
func (s *Service) Authenticate(ctx context.Context, name, password string) (bool, error) {
	stored, err := s.authns.GetVerifier(ctx, name)
	if errors.Is(err, pgxstore.ErrAuthenticatorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.Verifiers.Verify(password, stored)
}

// CreateRule appends a rule for group, failing with a
// meshauth.KindUnknownGroup error if the group does not exist.
func (s *Service) CreateRule(ctx context.Context, group string, action rules.Action, condition, argument string) (int64, error) {
	return s.Rules.CreateRule(ctx, group, action, condition, argument)
}

// DropRule unconditionally deletes by id.
func (s *Service) DropRule(ctx context.Context, id int64) error {
	return s.Rules.DropRule(ctx, id)
}

// EvaluateRules runs the rule evaluator for group against entity.
func (s *Service) EvaluateRules(ctx context.Context, group string, entity rules.Entity) (rules.Result, error) {
	return s.Rules.EvaluateRules(ctx, group, entity)
}

// Close releases the underlying connection pool.
func (s *Service) Close() {
	s.adapter.Close()
}
