package meshauth

import "context"

// Decision allows bypassing the rule evaluator for admin tools and
// tests without modifying rule data.
//
// The decision mechanism has two layers:
//  1. Evaluator-level: set via WithDecision() at evaluator construction
//  2. Context-level: set via WithDecisionContext(), consulted only when
//     the evaluator opted in via WithContextDecision()
//
// Context-based decisions are opt-in by design so that an authorization
// bypass set deep in a middleware chain cannot silently affect an
// evaluator that never asked to honor it.
type Decision int

const (
	// DecisionUnset means no override - evaluate rules normally.
	DecisionUnset Decision = iota
	// DecisionGrant bypasses rule evaluation and always returns "grant".
	DecisionGrant
	// DecisionDeny bypasses rule evaluation and always returns "deny".
	DecisionDeny
)

type decisionContextKey struct{}

var decisionKey = decisionContextKey{}

// WithDecisionContext returns a context carrying the given decision override.
func WithDecisionContext(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionKey, d)
}

// DecisionFromContext retrieves the decision set by WithDecisionContext,
// or DecisionUnset if none was set.
func DecisionFromContext(ctx context.Context) Decision {
	if d, ok := ctx.Value(decisionKey).(Decision); ok {
		return d
	}
	return DecisionUnset
}
