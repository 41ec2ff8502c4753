package pgxstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pthm/meshauth/meshauth"
)

// uniqueViolation reports whether err is a Postgres unique-constraint
// failure (SQLSTATE 23505), the signal the adapter maps to the
// sentinel errors meshauth.Engine recognizes.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// GroupStore implements meshauth.Store over the groups and
// group_members relations.
type GroupStore struct {
	adapter *Adapter
}

// NewGroupStore constructs a GroupStore over adapter's pool.
func NewGroupStore(adapter *Adapter) *GroupStore {
	return &GroupStore{adapter: adapter}
}

// GroupExists reports whether a group row with the given name exists.
func (s *GroupStore) GroupExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.adapter.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE name = $1)`, name,
	).Scan(&exists)
	return exists, err
}

// InsertGroup creates a group row, returning meshauth.ErrDuplicateGroup
// on a primary-key collision.
func (s *GroupStore) InsertGroup(ctx context.Context, name string) error {
	_, err := s.adapter.Pool.Exec(ctx, `INSERT INTO groups (name) VALUES ($1)`, name)
	if uniqueViolation(err) {
		return meshauth.ErrDuplicateGroup
	}
	return err
}

// DeleteGroup removes the group row and every edge mentioning it as
// parent or child, in a single transaction.
func (s *GroupStore) DeleteGroup(ctx context.Context, name string) error {
	tx, err := s.adapter.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM groups WHERE name = $1`, name); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM group_members WHERE parent = $1 OR child = $1`, name,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InsertEdge adds (parent, child, edgetype), returning
// meshauth.ErrDuplicateEdge if (parent, child) already exists under
// any edgetype.
func (s *GroupStore) InsertEdge(ctx context.Context, e meshauth.Edge) error {
	_, err := s.adapter.Pool.Exec(ctx,
		`INSERT INTO group_members (parent, child, edgetype) VALUES ($1, $2, $3)`,
		e.Parent, e.Child, string(e.Type),
	)
	if uniqueViolation(err) {
		return meshauth.ErrDuplicateEdge
	}
	return err
}

// DeleteEdge removes the exact (parent, child, edgetype) row, if present.
func (s *GroupStore) DeleteEdge(ctx context.Context, e meshauth.Edge) error {
	_, err := s.adapter.Pool.Exec(ctx,
		`DELETE FROM group_members WHERE parent = $1 AND child = $2 AND edgetype = $3`,
		e.Parent, e.Child, string(e.Type),
	)
	return err
}

// ListMembers returns the direct edges with parent = group.
func (s *GroupStore) ListMembers(ctx context.Context, group string) ([]meshauth.Edge, error) {
	rows, err := s.adapter.Pool.Query(ctx,
		`SELECT parent, child, edgetype FROM group_members WHERE parent = $1`, group,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// ListParents returns the direct edges with child = node.
func (s *GroupStore) ListParents(ctx context.Context, node string) ([]meshauth.Edge, error) {
	rows, err := s.adapter.Pool.Query(ctx,
		`SELECT parent, child, edgetype FROM group_members WHERE child = $1`, node,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows pgx.Rows) ([]meshauth.Edge, error) {
	var out []meshauth.Edge
	for rows.Next() {
		var e meshauth.Edge
		var edgetype string
		if err := rows.Scan(&e.Parent, &e.Child, &edgetype); err != nil {
			return nil, err
		}
		e.Type = meshauth.EdgeType(edgetype)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ meshauth.Store = (*GroupStore)(nil)
