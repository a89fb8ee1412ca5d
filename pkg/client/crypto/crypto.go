// Package crypto seals the session token at rest. A per-installation secret
// is expanded with HKDF-SHA512 into an AES-256-GCM key bound to the server
// the token belongs to.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// SecretSize is the size of the installation secret
	SecretSize = 32

	// AESKeySize is the size of AES-256 keys
	AESKeySize = 32

	// NonceSize is the size of AES-GCM nonces
	NonceSize = 12

	// TagSize is the size of AES-GCM authentication tags
	TagSize = 16

	// HKDFSalt is the salt used for HKDF key derivation
	HKDFSalt = "votefeed-token-v1"
)

var (
	ErrInvalidKeySize    = errors.New("invalid key size")
	ErrInvalidCiphertext = errors.New("ciphertext too short")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication error")
	ErrSecretGeneration  = errors.New("secret generation failed")
)

// GenerateSecret returns SecretSize random bytes from crypto/rand
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretGeneration, err)
	}
	return secret, nil
}

// DeriveKey derives the AES-256 key for one purpose (usually the server
// address) from the installation secret using HKDF-SHA512. Different info
// strings yield unrelated keys.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) != SecretSize {
		return nil, fmt.Errorf("%w: secret must be %d bytes", ErrInvalidKeySize, SecretSize)
	}

	hkdfReader := hkdf.New(sha512.New, secret, []byte(HKDFSalt), []byte(info))

	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}

	return key, nil
}

// Encrypt encrypts plaintext using AES-256-GCM.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func Encrypt(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// Generate random nonce
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts a ciphertext produced by Encrypt
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[:NonceSize]
	encrypted := ciphertext[NonceSize:]

	plaintext, err := gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidKeySize, AESKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Sealer turns tokens into printable sealed strings and back
type Sealer struct {
	key []byte
}

// NewSealer creates a sealer for tokens issued by serverHost
func NewSealer(secret []byte, serverHost string) (*Sealer, error) {
	key, err := DeriveKey(secret, serverHost)
	if err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts token and encodes the result as unpadded base64url
func (s *Sealer) Seal(token string) (string, error) {
	sealed, err := Encrypt(s.key, []byte(token))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	plaintext, err := Decrypt(s.key, raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
