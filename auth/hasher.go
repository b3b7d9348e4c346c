package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/AustinSDK/Authincation-service/errors"
)

// Hasher allows password hashing to be customized.
type Hasher interface {
	// Generate a hashed password from a plaintext password.
	Generate(password []byte) ([]byte, error)

	// Compare a hashed password with a plaintext password. Returns nil on a
	// match and a non-nil error otherwise.
	Compare(hashedPassword, password []byte) error
}

// DefaultHasher hashes passwords with Argon2id.
var DefaultHasher Hasher = argonHasher{
	memory:  64 * 1024,
	time:    3,
	threads: 2,
	keyLen:  32,
	saltLen: 16,
}

// TestHasher is a Hasher that does not hash passwords. It is useful for
// testing purposes.
var TestHasher Hasher = testHasher{}

// ErrMismatch is returned by Compare when the password does not match.
var ErrMismatch = errors.NewC("password does not match", errors.Unauthenticated)

type argonHasher struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

func (h argonHasher) Generate(password []byte) ([]byte, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, 0)
	}

	key := argon2.IDKey(password, salt, h.time, h.memory, h.threads, h.keyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return []byte(encoded), nil
}

// Compare re-derives the key using the parameters embedded in the stored
// hash, so parameter changes only affect newly generated hashes. Malformed
// stored hashes compare as mismatches, never as panics or internal errors.
func (h argonHasher) Compare(hashedPassword, password []byte) error {
	parts := strings.Split(string(hashedPassword), "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return errors.Mark(ErrMismatch, 0)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return errors.Mark(ErrMismatch, 0)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return errors.Mark(ErrMismatch, 0)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return errors.Mark(ErrMismatch, 0)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return errors.Mark(ErrMismatch, 0)
	}

	got := argon2.IDKey(password, salt, time, memory, threads, uint32(len(want)))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return errors.Mark(ErrMismatch, 0)
	}
	return nil
}

type testHasher struct{}

func (testHasher) Generate(password []byte) ([]byte, error) {
	return password, nil
}

func (testHasher) Compare(hashedPassword, password []byte) error {
	if string(hashedPassword) != string(password) {
		return errors.Mark(ErrMismatch, 0)
	}
	return nil
}
