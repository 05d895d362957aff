package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
)

func NewGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, errors.New("AES-256 requires 32 bytes key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a freshly generated IV. The IV is
// returned separately and must be stored alongside the ciphertext.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	aead, err := NewGCM(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens ciphertext. Any mismatch of key, iv or payload yields
// apperr.ErrDecryptionFailure.
func Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	aead, err := NewGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecryptionFailure, err)
	}
	if len(iv) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: iv must be %d bytes", apperr.ErrDecryptionFailure, aead.NonceSize())
	}
	pt, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecryptionFailure, err)
	}
	return pt, nil
}
