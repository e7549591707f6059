// Package cryptox seals small secrets, such as the session token, before
// they are written to the local cache.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrCiphertextTooShort is returned by Open for blobs shorter than a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer encrypts and authenticates data with XChaCha20-Poly1305 under a key
// derived from a device secret.
type Sealer struct {
	key []byte
}

// NewSealer derives a 256-bit key from secret with HKDF-SHA256. Different
// info strings yield independent keys from the same secret.
func NewSealer(secret []byte, info string) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal returns nonce||ciphertext. ad is authenticated but not encrypted.
func (s *Sealer) Seal(plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, ad), nil
}

// Open reverses Seal. It fails if blob or ad were tampered with.
func (s *Sealer) Open(blob, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}
