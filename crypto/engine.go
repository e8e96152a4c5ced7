// Package crypto provides the identity and key layer of the budget: a
// pluggable engine that protects the ledger master key under an asymmetric
// identity key, and the symmetric sealer used to encrypt rows at rest.
package crypto

import "errors"

// ErrKeyInvalid reports an identity key that cannot protect the ledger:
// missing, symmetric-only, public-only, or not usable for encryption.
var ErrKeyInvalid = errors.New("key is not suitable for data protection")

// ErrKeyUnavailable reports that the master key cannot be unwrapped, e.g.
// the private key is gone or the wrapped blob does not match it.
var ErrKeyUnavailable = errors.New("master key is unavailable")

// Engine wraps and unwraps the ledger master key under an asymmetric
// identity key. Implementations may block awaiting an external secret.
type Engine interface {
	// Name identifies the engine implementation for diagnostics.
	Name() string
	// Version identifies the engine version for diagnostics.
	Version() string

	// Lookup checks that keyID designates a usable identity key. It fails
	// with ErrKeyInvalid when the key is missing, carries no private part,
	// or does not support encryption.
	Lookup(keyID string) error

	// Create generates a fresh master key, wraps it under the key
	// identified by keyID, persists the wrapped blob inside root, and
	// returns the raw master key.
	Create(root, keyID string) ([]byte, error)

	// Open unwraps the master key previously created inside root. It fails
	// with ErrKeyUnavailable when unwrapping is impossible.
	Open(root string) ([]byte, error)
}
