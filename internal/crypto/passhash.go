// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Params are the Argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Upper bounds accepted when decoding a stored credential.
const (
	maxMemory      = 1 << 20 // 1 GiB
	maxIterations  = 64
	maxParallelism = 64
	minSaltLength  = 8
)

// DefaultParams returns Argon2id parameters tuned for server-side hashing.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024, // 64 MiB
		Iterations:  3,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// PasswordManager hashes and verifies passwords. It holds no mutable state and is
// safe for concurrent use.
type PasswordManager struct {
	params Params
}

// NewPasswordManager returns a manager hashing with p. Zero fields fall back to
// DefaultParams.
func NewPasswordManager(p Params) *PasswordManager {
	def := DefaultParams()
	if p.Memory == 0 {
		p.Memory = def.Memory
	}
	if p.Iterations == 0 {
		p.Iterations = def.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = def.Parallelism
	}
	if p.SaltLength < minSaltLength {
		p.SaltLength = def.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = def.KeyLength
	}
	return &PasswordManager{params: p}
}

// Hash derives an encoded Argon2id credential from password using a fresh salt.
// The output differs between calls for the same password.
func (m *PasswordManager) Hash(password string) string {
	// crypto/rand.Read never returns an error since Go 1.24.
	salt, _ := RandBytes(int(m.params.SaltLength))

	key := argon2.IDKey([]byte(password), salt, m.params.Iterations, m.params.Memory, m.params.Parallelism, m.params.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, m.params.Memory, m.params.Iterations, m.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// Verify reports whether password matches the encoded credential. A malformed
// credential is reported as a mismatch.
func (m *PasswordManager) Verify(password, encoded string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}
	p, salt, want, ok := decodeArgon2id(encoded)
	if !ok {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NeedsRehash reports whether encoded was produced by a different algorithm or
// with parameters other than the manager's current ones.
func (m *PasswordManager) NeedsRehash(encoded string) bool {
	p, salt, key, ok := decodeArgon2id(encoded)
	if !ok {
		return true
	}
	return p.Memory != m.params.Memory ||
		p.Iterations != m.params.Iterations ||
		p.Parallelism != m.params.Parallelism ||
		uint32(len(salt)) != m.params.SaltLength ||
		uint32(len(key)) != m.params.KeyLength
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

// decodeArgon2id parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeArgon2id(encoded string) (Params, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, false
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, false
	}
	if p.Memory == 0 || p.Memory > maxMemory ||
		p.Iterations == 0 || p.Iterations > maxIterations ||
		p.Parallelism == 0 || p.Parallelism > maxParallelism {
		return Params{}, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength {
		return Params{}, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, false
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, true
}
