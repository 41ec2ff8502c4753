// Package rules stores and evaluates the ordered per-group rule list
// that maps a (group, entity) pair to one of grant, deny or ignore.
package rules

import (
	"context"
	"strconv"

	"github.com/pthm/meshauth/meshauth"
)

// Action is the effect a rule applies when its condition holds.
type Action string

const (
	ActionGrant Action = "grant"
	ActionDeny  Action = "deny"
)

// Result is the outcome of evaluating a group's rule list.
type Result string

const (
	ResultGrant  Result = "grant"
	ResultDeny   Result = "deny"
	ResultIgnore Result = "ignore"
)

// Rule is a single ordered rule attached to a group.
type Rule struct {
	ID        int64
	Group     string
	Action    Action
	Condition string
	Argument  string
	Order     int
}

// Entity is the extension point `evaluate_rules` is given to test a
// rule's condition against. Only "always" is defined, so no concrete
// condition implemented today inspects it, but the evaluator still
// threads it through so adding a condition is a registry change, not
// an evaluator rewrite.
type Entity map[string]any

// Store persists rules for a group. Implementations must make
// CreateRule's order assignment atomic per group (see
// pgxstore.RuleStore for the Postgres advisory-lock version).
type Store interface {
	// CreateRule appends a rule for group with order = max(existing, 0) + 1.
	// It does not check that group exists; Evaluator.CreateRule does that
	// before calling it.
	CreateRule(ctx context.Context, group string, action Action, condition, argument string) (int64, error)
	// DropRule unconditionally deletes by id.
	DropRule(ctx context.Context, id int64) error
	// ListRules returns group's rules ordered by Order ascending.
	ListRules(ctx context.Context, group string) ([]Rule, error)
}

// GroupChecker is the minimal surface the evaluator needs to validate
// create_rule's target group, satisfied directly by *meshauth.Engine.
type GroupChecker interface {
	GroupExists(ctx context.Context, name string) (bool, error)
}

// Evaluator creates rules (after validating the target group exists)
// and evaluates a group's rule list against an entity.
type Evaluator struct {
	store     Store
	groups    GroupChecker
	decision  meshauth.Decision
	ctxAware  bool
	condFuncs map[string]func(condition, argument string, entity Entity) bool
}

// Option configures an Evaluator at construction time.
type Option func(*Evaluator)

// WithDecision forces every EvaluateRules call to bypass rule storage
// and return d, for admin tools and tests. d must be DecisionGrant or
// DecisionDeny; DecisionUnset (the default) evaluates normally.
func WithDecision(d meshauth.Decision) Option {
	return func(e *Evaluator) { e.decision = d }
}

// WithContextDecision opts the Evaluator into honoring a decision
// placed on the context via meshauth.WithDecisionContext. Disabled by
// default so a bypass set by unrelated middleware cannot silently
// affect an Evaluator that never asked for it.
func WithContextDecision() Option {
	return func(e *Evaluator) { e.ctxAware = true }
}

// NewEvaluator constructs an Evaluator over store, using groups to
// validate create_rule's target group. The "always" condition is
// registered by default.
func NewEvaluator(store Store, groups GroupChecker, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:  store,
		groups: groups,
		condFuncs: map[string]func(condition, argument string, entity Entity) bool{
			"always": func(string, string, Entity) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterCondition adds a condition predicate to the evaluator's
// registry. Adding a condition is a registry insertion; it never
// requires changing CreateRule or EvaluateRules.
func (e *Evaluator) RegisterCondition(name string, fn func(condition, argument string, entity Entity) bool) {
	e.condFuncs[name] = fn
}

// CreateRule appends a rule for group, failing with a
// meshauth.KindUnknownGroup error if the group does not exist.
func (e *Evaluator) CreateRule(ctx context.Context, group string, action Action, condition, argument string) (int64, error) {
	exists, err := e.groups.GroupExists(ctx, group)
	if err != nil {
		return 0, meshauth.NewError(meshauth.KindStorage, "CreateRule", "checking group existence", err)
	}
	if !exists {
		return 0, meshauth.NewError(meshauth.KindUnknownGroup, "CreateRule", "group '"+group+"' does not exist", nil)
	}
	id, err := e.store.CreateRule(ctx, group, action, condition, argument)
	if err != nil {
		return 0, meshauth.NewError(meshauth.KindStorage, "CreateRule", "inserting rule", err)
	}
	return id, nil
}

// DropRule unconditionally deletes by id.
func (e *Evaluator) DropRule(ctx context.Context, id int64) error {
	if err := e.store.DropRule(ctx, id); err != nil {
		return meshauth.NewError(meshauth.KindStorage, "DropRule", "deleting rule", err)
	}
	return nil
}

// EvaluateRules selects group's rules ordered by Order and returns the
// first rule's action whose condition holds. An unrecognized
// condition fails loudly with meshauth.KindUnknownCondition rather
// than being skipped, preserving deny-by-rule-ordering semantics. If
// no rule fires, returns ResultIgnore.
func (e *Evaluator) EvaluateRules(ctx context.Context, group string, entity Entity) (Result, error) {
	if e.decision == meshauth.DecisionGrant {
		return ResultGrant, nil
	}
	if e.decision == meshauth.DecisionDeny {
		return ResultDeny, nil
	}
	if e.ctxAware {
		switch meshauth.DecisionFromContext(ctx) {
		case meshauth.DecisionGrant:
			return ResultGrant, nil
		case meshauth.DecisionDeny:
			return ResultDeny, nil
		}
	}

	list, err := e.store.ListRules(ctx, group)
	if err != nil {
		return "", meshauth.NewError(meshauth.KindStorage, "EvaluateRules", "listing rules", err)
	}

	for _, r := range list {
		fn, ok := e.condFuncs[r.Condition]
		if !ok {
			return "", meshauth.NewError(meshauth.KindUnknownCondition, "EvaluateRules", "unknown condition '"+r.Condition+"' for rule "+strconv.FormatInt(r.ID, 10), nil)
		}
		if fn(r.Condition, r.Argument, entity) {
			return Result(r.Action), nil
		}
	}
	return ResultIgnore, nil
}
