package catalog

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Hasher turns a password and per-user salt into a stored hash. The
// algorithm is deliberately pluggable: it is a server policy, not part of
// the wire contract.
type Hasher interface {
	Hash(password, salt []byte) []byte
}

// Argon2Hasher is the default Hasher: argon2id with fixed parameters.
type Argon2Hasher struct{}

func (Argon2Hasher) Hash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func hashesEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
