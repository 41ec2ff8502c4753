package pgxstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrAuthenticatorNotFound is returned by GetVerifier when no
// authenticator with the given name exists.
var ErrAuthenticatorNotFound = errors.New("authenticator not found")

// AuthenticatorStore persists (name, verifier, account) tuples.
type AuthenticatorStore struct {
	adapter *Adapter
}

// NewAuthenticatorStore constructs an AuthenticatorStore over adapter's pool.
func NewAuthenticatorStore(adapter *Adapter) *AuthenticatorStore {
	return &AuthenticatorStore{adapter: adapter}
}

// ErrDuplicateName is returned on a name collision.
var ErrDuplicateName = errors.New("authenticator name already in use")

// CreateAuthenticator inserts the tuple, returning ErrDuplicateName on
// a primary-key collision. It does not validate that account exists.
func (s *AuthenticatorStore) CreateAuthenticator(ctx context.Context, name, verifier string, account int64) error {
	_, err := s.adapter.Pool.Exec(ctx,
		`INSERT INTO authenticators (name, verifier, account) VALUES ($1, $2, $3)`,
		name, verifier, account,
	)
	if uniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// DropAuthenticator unconditionally deletes by name; absent rows are a no-op.
func (s *AuthenticatorStore) DropAuthenticator(ctx context.Context, name string) error {
	_, err := s.adapter.Pool.Exec(ctx, `DELETE FROM authenticators WHERE name = $1`, name)
	return err
}

// GetVerifier returns the stored verifier string for name.
func (s *AuthenticatorStore) GetVerifier(ctx context.Context, name string) (string, error) {
	var verifier string
	err := s.adapter.Pool.QueryRow(ctx,
		`SELECT verifier FROM authenticators WHERE name = $1`, name,
	).Scan(&verifier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrAuthenticatorNotFound
	}
	return verifier, err
}
