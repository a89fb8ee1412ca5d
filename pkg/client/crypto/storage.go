package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// KeysDirName is the subdirectory name for storing secrets
	KeysDirName = "keys"

	// SecretFileName is the installation secret's file name
	SecretFileName = "token.secret"

	// KeyFileMode is the file permission for key files (owner read/write only)
	KeyFileMode = 0600

	// KeyDirMode is the directory permission for the keys directory
	KeyDirMode = 0700
)

var (
	ErrKeyNotFound    = errors.New("secret not found")
	ErrKeyFileCorrupt = errors.New("secret file is corrupt")
)

// KeyStore manages the installation secret on disk
type KeyStore struct {
	baseDir string // Base state directory (e.g., ~/.votefeed)
}

// NewKeyStore creates a new KeyStore rooted at the state directory
func NewKeyStore(stateDir string) *KeyStore {
	return &KeyStore{
		baseDir: stateDir,
	}
}

// keysDir returns the path to the keys directory, creating it if necessary
func (ks *KeyStore) keysDir() (string, error) {
	dir := filepath.Join(ks.baseDir, KeysDirName)
	if err := os.MkdirAll(dir, KeyDirMode); err != nil {
		return "", fmt.Errorf("failed to create keys directory: %w", err)
	}
	return dir, nil
}

func (ks *KeyStore) secretPath() (string, error) {
	dir, err := ks.keysDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SecretFileName), nil
}

// SaveSecret writes the secret atomically with restrictive permissions
func (ks *KeyStore) SaveSecret(secret []byte) error {
	if len(secret) != SecretSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, SecretSize, len(secret))
	}

	path, err := ks.secretPath()
	if err != nil {
		return err
	}

	// Write atomically by writing to temp file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, secret, KeyFileMode); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}

	// Rename to final path (atomic on POSIX)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) // Clean up temp file
		return fmt.Errorf("failed to save secret file: %w", err)
	}

	return nil
}

// LoadSecret reads the secret
func (ks *KeyStore) LoadSecret() ([]byte, error) {
	path, err := ks.secretPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	if len(data) != SecretSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrKeyFileCorrupt, SecretSize, len(data))
	}

	return data, nil
}

// DeleteSecret removes the secret. Tokens sealed with it become unreadable.
func (ks *KeyStore) DeleteSecret() error {
	path, err := ks.secretPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete secret file: %w", err)
	}

	return nil
}

// LoadOrGenerateSecret loads the secret, creating one on first use.
// Returns whether the secret was newly generated.
func (ks *KeyStore) LoadOrGenerateSecret() ([]byte, bool, error) {
	secret, err := ks.LoadSecret()
	if err == nil {
		return secret, false, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, false, err
	}

	secret, err = GenerateSecret()
	if err != nil {
		return nil, false, err
	}
	if err := ks.SaveSecret(secret); err != nil {
		return nil, false, err
	}
	return secret, true, nil
}

// SealerFor returns a Sealer for tokens from serverHost, creating the
// installation secret if needed
func (ks *KeyStore) SealerFor(serverHost string) (*Sealer, error) {
	secret, _, err := ks.LoadOrGenerateSecret()
	if err != nil {
		return nil, err
	}
	return NewSealer(secret, sanitizeHost(serverHost))
}

// sanitizeHost normalizes a server address for use as HKDF info.
// Scheme and trailing slashes are dropped so http and ws forms match.
func sanitizeHost(host string) string {
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimRight(host, "/")
	return strings.ToLower(host)
}
