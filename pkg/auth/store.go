// Copyright 2025 The stomp-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrWrongPassword is returned by Check when the username is known but the
// passcode does not match its stored credential.
var ErrWrongPassword = errors.New("wrong password")

// User is one credential entry.
type User struct {
	Username     string        `json:"username"`
	PasswordHash string        `json:"password_hash"`
	Algorithm    HashAlgorithm `json:"algorithm"`
	Salt         string        `json:"salt,omitempty"`
	Enabled      bool          `json:"enabled"`
}

// Store is an in-memory credential store. A username seen for the first time
// is registered with the passcode it presents; subsequent logins for that
// username must present the same passcode. Safe for concurrent use.
type Store struct {
	users      map[string]*User
	defaultAlg HashAlgorithm
	mu         sync.RWMutex
}

// NewStore creates an empty store. First-time registrations are hashed with
// defaultAlg.
func NewStore(defaultAlg HashAlgorithm) *Store {
	if !defaultAlg.Valid() {
		defaultAlg = HashSHA256
	}
	return &Store{
		users:      make(map[string]*User),
		defaultAlg: defaultAlg,
	}
}

// AddUser seeds a credential, hashing the password with the given algorithm.
func (s *Store) AddUser(username, password string, algorithm HashAlgorithm) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !algorithm.Valid() {
		return fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}

	salt := ""
	if algorithm == HashSHA256 {
		salt = username
	}
	hash, err := hashPassword(password, salt, algorithm)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &User{
		Username:     username,
		PasswordHash: hash,
		Algorithm:    algorithm,
		Salt:         salt,
		Enabled:      true,
	}
	return nil
}

// SetUserEnabled enables or disables a user. Disabled users fail Check as if
// they presented a wrong passcode.
func (s *Store) SetUserEnabled(username string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return fmt.Errorf("user not found: %s", username)
	}
	user.Enabled = enabled
	return nil
}

// Check verifies a login attempt. An unknown username is registered with the
// presented passcode and accepted; a known username must match its stored
// credential or Check returns ErrWrongPassword.
func (s *Store) Check(username, passcode string) error {
	s.mu.RLock()
	user, exists := s.users[username]
	s.mu.RUnlock()

	if exists {
		if !user.Enabled || !verifyPassword(passcode, user.PasswordHash, user.Salt, user.Algorithm) {
			return ErrWrongPassword
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock; another attempt may have registered the
	// username between the two lock acquisitions.
	if user, exists := s.users[username]; exists {
		if !user.Enabled || !verifyPassword(passcode, user.PasswordHash, user.Salt, user.Algorithm) {
			return ErrWrongPassword
		}
		return nil
	}

	salt := ""
	if s.defaultAlg == HashSHA256 {
		salt = username
	}
	hash, err := hashPassword(passcode, salt, s.defaultAlg)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	s.users[username] = &User{
		Username:     username,
		PasswordHash: hash,
		Algorithm:    s.defaultAlg,
		Salt:         salt,
		Enabled:      true,
	}
	log.Printf("[INFO] Registered user %s on first login", username)
	return nil
}

// Known reports whether a username has a stored credential.
func (s *Store) Known(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.users[username]
	return exists
}
