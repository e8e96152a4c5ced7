package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Sealer encrypts and decrypts byte payloads using AES-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds an AES-GCM sealer from a raw AES key.
// key must be a valid AES length (16/24/32 bytes).
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts one payload and returns it as nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s == nil || s.aead == nil {
		return nil, fmt.Errorf("sealer is not configured")
	}

	// AES-GCM requires a unique nonce per encryption under the same key.
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts one previously sealed payload.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if s == nil || s.aead == nil {
		return nil, fmt.Errorf("sealer is not configured")
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed payload is too short")
	}
	// Payload format is nonce || ciphertext.
	nonce := sealed[:nonceSize]
	ciphertext := sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt sealed payload: %w", err)
	}
	return plaintext, nil
}
