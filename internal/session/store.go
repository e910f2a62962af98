// Package session persists the inventory API sign-in between invocations.
//
// The signed-in session (token, user, server and the station's network
// identity) is stored as YAML with gopkg.in/yaml.v3 in a file readable only
// by the current user. Commands that call authenticated endpoints load it;
// "lotscan logout" removes it.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotSignedIn is returned by Load when no session file exists.
var ErrNotSignedIn = errors.New("not signed in")

const fileName = "session.yaml"

// Session is a signed-in inventory API session.
type Session struct {
	// Token is sent as x-token on authenticated calls.
	Token string `yaml:"token"`

	// Username is the operator name returned at sign-in. It is printed on
	// master and mono labels as the operator.
	Username string `yaml:"username"`

	// UserID is the crn_id returned at sign-in, sent as x-user-id.
	UserID string `yaml:"userId"`

	// Server is the API base URL the token was issued by.
	Server string `yaml:"server"`

	// Verified is set once the second factor has been confirmed.
	Verified bool `yaml:"verified"`

	// MACAddress and IPAddress identify the station to the API.
	MACAddress string `yaml:"macAddress,omitempty"`
	IPAddress  string `yaml:"ipAddress,omitempty"`

	SignedInAt time.Time `yaml:"signedInAt"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns a Store at <UserConfigDir>/lotscan/session.yaml.
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return NewStore(filepath.Join(dir, "lotscan", fileName)), nil
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored session. A missing file yields ErrNotSignedIn, as
// does a file without a token.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
	}
	if sess.Token == "" {
		return nil, ErrNotSignedIn
	}
	return &sess, nil
}

// Save writes the session with 0600 permissions, creating the directory
// if needed.
func (s *Store) Save(sess *Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(s.path, 0600); err != nil {
		return fmt.Errorf("failed to restrict session file: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing when signed out is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
