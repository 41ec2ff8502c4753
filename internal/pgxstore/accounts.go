package pgxstore

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// AccountStore creates and drops accounts, cascading authenticator
// deletion transactionally on drop.
type AccountStore struct {
	adapter *Adapter
}

// NewAccountStore constructs an AccountStore over adapter's pool.
func NewAccountStore(adapter *Adapter) *AccountStore {
	return &AccountStore{adapter: adapter}
}

// CreateAccount inserts a row and returns the generated id.
func (s *AccountStore) CreateAccount(ctx context.Context) (int64, error) {
	var id int64
	err := s.adapter.Pool.QueryRow(ctx,
		`INSERT INTO accounts DEFAULT VALUES RETURNING id`,
	).Scan(&id)
	return id, err
}

// DropAccount deletes the account row and every authenticator whose
// account = id, in one transaction. Absent accounts are a no-op.
func (s *AccountStore) DropAccount(ctx context.Context, id int64) error {
	tx, err := s.adapter.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM authenticators WHERE account = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
