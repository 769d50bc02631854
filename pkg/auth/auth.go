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

// Package auth provides the credential store backing CONNECT authentication.
// Passwords are stored hashed with a configurable algorithm: plain text,
// SHA256, or bcrypt.
package auth

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAlgorithm selects how a user's password is hashed at rest.
type HashAlgorithm string

const (
	// HashPlain stores passwords in plain text (not recommended for production).
	HashPlain HashAlgorithm = "plain"
	// HashSHA256 stores salted SHA256 digests.
	HashSHA256 HashAlgorithm = "sha256"
	// HashBcrypt stores bcrypt hashes (recommended).
	HashBcrypt HashAlgorithm = "bcrypt"
)

// Valid reports whether the algorithm is one the store supports.
func (a HashAlgorithm) Valid() bool {
	switch a {
	case HashPlain, HashSHA256, HashBcrypt:
		return true
	}
	return false
}

// hashPassword creates a hash of the password using the specified algorithm.
func hashPassword(password, salt string, algorithm HashAlgorithm) (string, error) {
	switch algorithm {
	case HashPlain:
		return password, nil
	case HashSHA256:
		hasher := sha256.New()
		hasher.Write([]byte(salt + password))
		return fmt.Sprintf("%x", hasher.Sum(nil)), nil
	case HashBcrypt:
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(hash), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// verifyPassword verifies a password against a hash using the specified algorithm.
func verifyPassword(password, hash, salt string, algorithm HashAlgorithm) bool {
	switch algorithm {
	case HashPlain:
		return password == hash
	case HashSHA256:
		expected, err := hashPassword(password, salt, HashSHA256)
		if err != nil {
			return false
		}
		return expected == hash
	case HashBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	default:
		return false
	}
}
