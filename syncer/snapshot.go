package syncer

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/etnz/bdgt/crypto"
	"github.com/etnz/bdgt/store"

	"golang.org/x/crypto/argon2"
)

// magic identifies a bdgt snapshot and its format version.
var magic = []byte("bdgt1")

const saltSize = 16

// deriveKey stretches the sync passphrase into an AES-256 payload key with
// Argon2id. The passphrase itself is never persisted; only the salt travels
// with the snapshot.
func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// sealSnapshot encodes and encrypts a full ledger state for publication.
// Layout: magic || salt || nonce || ciphertext.
func sealSnapshot(passphrase []byte, cs *store.ChangeSet) ([]byte, error) {
	plain, err := json.Marshal(cs)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	sealer, err := crypto.NewSealer(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	sealed, err := sealer.Seal(plain)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+saltSize+len(sealed))
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, sealed...)
	return out, nil
}

// openSnapshot decrypts and decodes a published snapshot. A snapshot that
// does not authenticate under the derived key fails with
// ErrPassphraseRejected; a structurally broken one fails with ErrDecrypt.
func openSnapshot(passphrase, data []byte) (*store.ChangeSet, error) {
	if len(data) < len(magic)+saltSize || !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: not a bdgt snapshot", ErrDecrypt)
	}
	salt := data[len(magic) : len(magic)+saltSize]
	sealed := data[len(magic)+saltSize:]

	sealer, err := crypto.NewSealer(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	plain, err := sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPassphraseRejected, err)
	}

	var cs store.ChangeSet
	if err := json.Unmarshal(plain, &cs); err != nil {
		return nil, fmt.Errorf("%w: malformed snapshot body: %v", ErrDecrypt, err)
	}
	return &cs, nil
}
