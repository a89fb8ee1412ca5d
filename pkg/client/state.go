package client

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aeolun/votefeed/pkg/client/crypto"
)

const (
	configSessionToken = "session_token"
	configLastUsername = "last_username"
	configFirstRun     = "first_run_complete"
)

// State manages client-side persistent state: the sealed session token,
// the last username used, and first-run flags
type State struct {
	db     *sql.DB
	dir    string // Directory where state is stored
	sealer *crypto.Sealer
}

// OpenState opens or creates the client state database
func OpenState(path string) (*State, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Client only needs one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	state := &State{
		db:  db,
		dir: dir,
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return state, nil
}

// SetSealer enables sealing of the stored token. Without a sealer the token
// is stored as-is.
func (s *State) SetSealer(sealer *crypto.Sealer) {
	s.sealer = sealer
}

// Close closes the state database
func (s *State) Close() error {
	return s.db.Close()
}

// GetConfig retrieves a configuration value
func (s *State) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM Config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig stores a configuration value
func (s *State) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO Config (key, value, updated_at) VALUES (?, ?, ?)
	`, key, value, time.Now().Unix())
	return err
}

// DeleteConfig removes a configuration value
func (s *State) DeleteConfig(key string) error {
	_, err := s.db.Exec("DELETE FROM Config WHERE key = ?", key)
	return err
}

// Token returns the stored session token. A token that cannot be unsealed
// (for example after the secret was deleted) reads as absent.
func (s *State) Token() (string, bool) {
	stored, err := s.GetConfig(configSessionToken)
	if err != nil || stored == "" {
		return "", false
	}
	if s.sealer == nil {
		return stored, true
	}
	token, err := s.sealer.Open(stored)
	if err != nil {
		return "", false
	}
	return token, true
}

// SetToken stores the session token, sealed if a sealer is set
func (s *State) SetToken(token string) error {
	stored := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("seal session token: %w", err)
		}
		stored = sealed
	}
	return s.SetConfig(configSessionToken, stored)
}

// RemoveToken deletes the stored session token
func (s *State) RemoveToken() error {
	return s.DeleteConfig(configSessionToken)
}

// LastUsername returns the username last submitted on the login form
func (s *State) LastUsername() string {
	username, _ := s.GetConfig(configLastUsername)
	return username
}

// SetLastUsername stores the username last submitted on the login form
func (s *State) SetLastUsername(username string) error {
	return s.SetConfig(configLastUsername, username)
}

// GetFirstRun checks if this is the first time running the client
func (s *State) GetFirstRun() bool {
	val, _ := s.GetConfig(configFirstRun)
	return val != "true"
}

// SetFirstRunComplete marks first run as complete
func (s *State) SetFirstRunComplete() error {
	return s.SetConfig(configFirstRun, "true")
}

// GetStateDir returns the directory where state is stored
func (s *State) GetStateDir() string {
	return s.dir
}
