package pgxstore

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v5"

	"github.com/pthm/meshauth/internal/rules"
)

// RuleStore persists rules with a monotonically increasing per-group
// order. CreateRule serializes concurrent calls for the same group via
// a transaction-scoped Postgres advisory lock keyed by a hash of the
// group name: a row-level SELECT ... FOR UPDATE cannot help here
// because the table may have zero existing rows for the group, which
// is exactly the race the design calls out.
type RuleStore struct {
	adapter *Adapter
}

// NewRuleStore constructs a RuleStore over adapter's pool.
func NewRuleStore(adapter *Adapter) *RuleStore {
	return &RuleStore{adapter: adapter}
}

func groupLockKey(group string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(group))
	return int64(h.Sum64())
}

// CreateRule appends a rule for group with order = max(existing.order, 0) + 1.
func (s *RuleStore) CreateRule(ctx context.Context, group string, action rules.Action, condition, argument string) (int64, error) {
	tx, err := s.adapter.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, groupLockKey(group)); err != nil {
		return 0, err
	}

	var maxOrder int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX("order"), 0) FROM rules WHERE "group" = $1`, group,
	).Scan(&maxOrder)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO rules ("group", action, condition, argument, "order")
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		group, string(action), condition, argument, maxOrder+1,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// DropRule unconditionally deletes by id.
func (s *RuleStore) DropRule(ctx context.Context, id int64) error {
	_, err := s.adapter.Pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	return err
}

// ListRules returns group's rules ordered by "order" ascending.
func (s *RuleStore) ListRules(ctx context.Context, group string) ([]rules.Rule, error) {
	rows, err := s.adapter.Pool.Query(ctx,
		`SELECT id, "group", action, condition, argument, "order"
		 FROM rules WHERE "group" = $1 ORDER BY "order" ASC`, group,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var r rules.Rule
		var action, argument *string
		if err := rows.Scan(&r.ID, &r.Group, &action, &r.Condition, &argument, &r.Order); err != nil {
			return nil, err
		}
		if action != nil {
			r.Action = rules.Action(*action)
		}
		if argument != nil {
			r.Argument = *argument
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ rules.Store = (*RuleStore)(nil)
