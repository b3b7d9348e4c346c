package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgonRoundTrip(t *testing.T) {
	hash, err := DefaultHasher.Generate([]byte("Str0ng!Pass"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$"))
	assert.NotContains(t, string(hash), "Str0ng!Pass")

	assert.NoError(t, DefaultHasher.Compare(hash, []byte("Str0ng!Pass")))
	assert.Error(t, DefaultHasher.Compare(hash, []byte("wrong")))
}

func TestArgonHashesAreSalted(t *testing.T) {
	h1, err := DefaultHasher.Generate([]byte("same password"))
	require.NoError(t, err)
	h2, err := DefaultHasher.Generate([]byte("same password"))
	require.NoError(t, err)
	assert.NotEqual(t, string(h1), string(h2))
}

// Garbage stored hashes must compare as mismatches, never panic or surface a
// distinct failure mode.
func TestArgonCompareMalformed(t *testing.T) {
	malformed := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=3,p=2$notbase64!$also!",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
		"$bcrypt$whatever",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	for _, h := range malformed {
		err := DefaultHasher.Compare([]byte(h), []byte("password"))
		assert.ErrorIs(t, err, ErrMismatch, "hash %q", h)
	}
}

func TestTestHasher(t *testing.T) {
	h, err := TestHasher.Generate([]byte("pw"))
	require.NoError(t, err)
	assert.NoError(t, TestHasher.Compare(h, []byte("pw")))
	assert.Error(t, TestHasher.Compare(h, []byte("other")))
}
