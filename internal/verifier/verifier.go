// Package verifier implements the pluggable scheme:payload dispatcher
// authenticator verification uses. Adding a scheme is a registry
// insertion; it never requires changing the authenticator store.
package verifier

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pthm/meshauth/meshauth"
)

// Scheme verifies secret against a stored payload of its own format.
type Scheme interface {
	Verify(secret, payload string) (bool, error)
}

// SchemeFunc adapts a function to Scheme.
type SchemeFunc func(secret, payload string) (bool, error)

// Verify calls fn.
func (fn SchemeFunc) Verify(secret, payload string) (bool, error) { return fn(secret, payload) }

// Registry dispatches a "scheme:payload" verifier string to a
// registered Scheme. A verifier string with no recognized (or no)
// prefix is treated as a legacy bcrypt hash.
type Registry struct {
	schemes map[string]Scheme
	// AllowPlaintext gates the plaintext scheme. It must be false in
	// production builds; defaults to false.
	AllowPlaintext bool
}

// NewRegistry builds a Registry with bcrypt and plaintext pre-registered.
// Callers enable plaintext explicitly via EnablePlaintext - it exists
// for test fixtures only.
func NewRegistry() *Registry {
	r := &Registry{schemes: make(map[string]Scheme)}
	r.Register("bcrypt", SchemeFunc(verifyBcrypt))
	r.Register("plaintext", SchemeFunc(func(secret, payload string) (bool, error) {
		return secret == payload, nil
	}))
	return r
}

// Register adds or replaces the Scheme for the given prefix.
func (r *Registry) Register(scheme string, s Scheme) {
	r.schemes[scheme] = s
}

// EnablePlaintext turns on the plaintext scheme. Intended for tests only.
func (r *Registry) EnablePlaintext() { r.AllowPlaintext = true }

// HashBcrypt returns a "bcrypt:" verifier string for password.
func HashBcrypt(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return "bcrypt:" + string(hash), nil
}

func verifyBcrypt(secret, payload string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(payload), []byte(secret))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, meshauth.NewError(meshauth.KindInvalidVerifier, "Verify", "malformed bcrypt payload", err)
}

// Verify dispatches verifier as "scheme:payload" (longest prefix up to
// the first colon). An unrecognized or missing scheme is treated as a
// bare legacy bcrypt hash.
func (r *Registry) Verify(secret, verifier string) (bool, error) {
	scheme, payload, found := strings.Cut(verifier, ":")
	if !found {
		return verifyBcrypt(secret, verifier)
	}

	s, ok := r.schemes[scheme]
	if !ok {
		return verifyBcrypt(secret, verifier)
	}

	if scheme == "plaintext" && !r.AllowPlaintext {
		return false, meshauth.NewError(meshauth.KindInvalidVerifier, "Verify", "plaintext scheme is disabled", nil)
	}

	return s.Verify(secret, payload)
}
