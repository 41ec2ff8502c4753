package verifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/meshauth/internal/verifier"
	"github.com/pthm/meshauth/meshauth"
)

func TestPlaintext_DisabledByDefault(t *testing.T) {
	r := verifier.NewRegistry()
	_, err := r.Verify("bar", "plaintext:bar")
	assert.True(t, meshauth.Is(err, meshauth.KindInvalidVerifier))
}

func TestPlaintext_EnabledForTests(t *testing.T) {
	r := verifier.NewRegistry()
	r.EnablePlaintext()

	ok, err := r.Verify("bar", "plaintext:bar")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Verify("nope", "plaintext:bar")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcrypt_RoundTrip(t *testing.T) {
	hashed, err := verifier.HashBcrypt("hunter2")
	require.NoError(t, err)

	r := verifier.NewRegistry()
	ok, err := r.Verify("hunter2", hashed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Verify("wrong", hashed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownScheme_TreatedAsLegacyBcrypt(t *testing.T) {
	hashed, err := verifier.HashBcrypt("legacy-secret")
	require.NoError(t, err)
	// Strip the "bcrypt:" prefix to simulate a pre-scheme legacy payload.
	legacy := hashed[len("bcrypt:"):]

	r := verifier.NewRegistry()
	ok, err := r.Verify("legacy-secret", legacy)
	require.NoError(t, err)
	assert.True(t, ok)
}
