package hash

import "errors"

// ErrEmptySecret is returned when a keyed hasher is built without a secret.
var ErrEmptySecret = errors.New("hash: secret is required")

// Hash computes and verifies digests of secrets.
type Hash interface {
	// Hash returns the digest of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether str hashes to hashed. It must run in constant time
	// with respect to the content of both inputs.
	Verify(hashed, str string) bool
}
