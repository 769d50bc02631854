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

// Package audit records login and file-upload activity observed by the
// protocol engine and produces the shutdown report. The default recorder
// keeps everything in memory; a PostgreSQL-backed recorder is available for
// durable audit trails.
package audit

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Upload is one recorded file upload: a SEND frame that carried a filename
// header.
type Upload struct {
	Time        time.Time
	Username    string
	Filename    string
	Destination string
}

// Recorder receives audit events from the protocol engines. Implementations
// must be safe for concurrent use.
type Recorder interface {
	// RecordLogin notes a successful CONNECT for a username.
	RecordLogin(username string)
	// RecordUpload notes a SEND frame carrying a filename header.
	RecordUpload(username, filename, destination string)
	// WriteReport renders the activity summary, typically at shutdown.
	WriteReport(w io.Writer) error
	// Close releases any resources held by the recorder.
	Close() error
}

// MemoryRecorder is the default in-process Recorder.
type MemoryRecorder struct {
	mu      sync.Mutex
	logins  map[string]int
	uploads []Upload
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{logins: make(map[string]int)}
}

// RecordLogin notes a successful login for a username.
func (m *MemoryRecorder) RecordLogin(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[username]++
}

// RecordUpload notes one file upload.
func (m *MemoryRecorder) RecordUpload(username, filename, destination string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, Upload{
		Time:        time.Now(),
		Username:    username,
		Filename:    filename,
		Destination: destination,
	})
}

// Uploads returns a copy of the recorded uploads in arrival order.
func (m *MemoryRecorder) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Upload, len(m.uploads))
	copy(out, m.uploads)
	return out
}

// WriteReport renders login counts and the upload log.
func (m *MemoryRecorder) WriteReport(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]string, 0, len(m.logins))
	for user := range m.logins {
		users = append(users, user)
	}
	sort.Strings(users)

	if _, err := fmt.Fprintf(w, "logins: %d users\n", len(users)); err != nil {
		return err
	}
	for _, user := range users {
		if _, err := fmt.Fprintf(w, "  %s: %d\n", user, m.logins[user]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "uploads: %d\n", len(m.uploads)); err != nil {
		return err
	}
	for _, u := range m.uploads {
		if _, err := fmt.Fprintf(w, "  %s %s -> %s (by %s)\n",
			u.Time.Format(time.RFC3339), u.Filename, u.Destination, u.Username); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op for the in-memory recorder.
func (m *MemoryRecorder) Close() error { return nil }
