package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// masterKeyFile is the wrapped master key blob inside the budget root.
	masterKeyFile = "master.key"

	// masterKeySize is the raw AES-256 master key length.
	masterKeySize = 32
)

// Keyring is an Engine over a directory of PEM-encoded RSA identity keys.
// A key identified by keyID lives in <dir>/<keyID>.pem and must hold an RSA
// private key; the master key is wrapped with RSA-OAEP (SHA-256).
type Keyring struct {
	dir string
}

// NewKeyring returns a keyring engine rooted at dir.
func NewKeyring(dir string) *Keyring { return &Keyring{dir: dir} }

func (k *Keyring) Name() string    { return "keyring" }
func (k *Keyring) Version() string { return "1" }

// wrappedKey is the persisted form of the wrapped master key.
type wrappedKey struct {
	KeyID   string `json:"key_id"`
	Wrapped []byte `json:"wrapped"`
}

// Lookup checks that keyID designates a usable RSA private key.
func (k *Keyring) Lookup(keyID string) error {
	_, err := k.load(keyID)
	return err
}

// Create generates a fresh master key, wraps it under keyID and stores the
// wrapped blob in root. The raw master key is returned to the caller and
// never persisted.
func (k *Keyring) Create(root, keyID string) ([]byte, error) {
	key, err := k.load(keyID)
	if err != nil {
		return nil, err
	}

	master := make([]byte, masterKeySize)
	if _, err := rand.Read(master); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &key.PublicKey, master, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap master key: %w", err)
	}

	data, err := json.Marshal(wrappedKey{KeyID: keyID, Wrapped: wrapped})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(root, masterKeyFile), data, 0600); err != nil {
		return nil, fmt.Errorf("store wrapped master key: %w", err)
	}
	return master, nil
}

// Open unwraps the master key stored in root using the identity key it was
// wrapped under.
func (k *Keyring) Open(root string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, masterKeyFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	var w wrappedKey
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: malformed wrapped key: %v", ErrKeyUnavailable, err)
	}

	key, err := k.load(w.KeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	master, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, w.Wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap failed: %v", ErrKeyUnavailable, err)
	}
	return master, nil
}

// DiscardMasterKey deletes the wrapped master key stored in root, if any.
func DiscardMasterKey(root string) error {
	err := os.Remove(filepath.Join(root, masterKeyFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Generate creates a new RSA identity key under keyID. It refuses to
// overwrite an existing key.
func (k *Keyring) Generate(keyID string, bits int) error {
	path := k.path(keyID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key %q already exists in keyring", keyID)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(k.dir, 0700); err != nil {
		return err
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return os.WriteFile(path, pem.EncodeToMemory(block), 0600)
}

func (k *Keyring) path(keyID string) string {
	return filepath.Join(k.dir, keyID+".pem")
}

// load reads and validates the identity key for keyID. Every failure mode
// maps to ErrKeyInvalid so callers can distinguish "bad key" from "key
// temporarily unavailable".
func (k *Keyring) load(keyID string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(k.path(keyID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no key %q in keyring", ErrKeyInvalid, keyID)
	}
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		// Raw key material without PEM structure is treated as a symmetric
		// key, which cannot wrap anything for a recipient.
		return nil, fmt.Errorf("%w: key %q is not an asymmetric key", ErrKeyInvalid, keyID)
	}

	switch block.Type {
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrKeyInvalid, keyID, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			// Ed25519 and friends sign but do not encrypt.
			return nil, fmt.Errorf("%w: key %q has no encryption usage", ErrKeyInvalid, keyID)
		}
		return key, nil
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrKeyInvalid, keyID, err)
		}
		return key, nil
	case "PUBLIC KEY", "RSA PUBLIC KEY":
		return nil, fmt.Errorf("%w: key %q carries no private key", ErrKeyInvalid, keyID)
	default:
		return nil, fmt.Errorf("%w: key %q has unsupported type %q", ErrKeyInvalid, keyID, block.Type)
	}
}
