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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "stomp.cs.bgu.ac.il", cfg.Broker.Host)
	assert.Zero(t, cfg.Broker.ReactorPoolSize)
	assert.Empty(t, cfg.Broker.MetricsAddr)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "stompd.yaml", `
broker:
  host: stomp.example.org
  reactor_pool_size: 8
  metrics_addr: ":9090"
  users:
    - username: alice
      password: secret
      algorithm: sha256
      enabled: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "stomp.example.org", cfg.Broker.Host)
	assert.Equal(t, 8, cfg.Broker.ReactorPoolSize)
	assert.Equal(t, ":9090", cfg.Broker.MetricsAddr)
	require.Len(t, cfg.Broker.Users, 1)
	assert.Equal(t, "alice", cfg.Broker.Users[0].Username)
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "stompd.json", `{"broker":{"host":"stomp.example.org"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "stomp.example.org", cfg.Broker.Host)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.toml", "x = 1"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "broker:\n  host: \"\"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "badalg.yaml", `
broker:
  host: h
  users:
    - username: bob
      password: pw
      algorithm: md5
`))
	assert.Error(t, err)
}

func TestBuildCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker.Users = []UserConfig{
		{Username: "alice", Password: "pw", Algorithm: "bcrypt", Enabled: true},
		{Username: "bob", Password: "pw", Algorithm: "plain", Enabled: false},
	}

	store, err := cfg.BuildCredentials()
	require.NoError(t, err)
	assert.NoError(t, store.Check("alice", "pw"))
	assert.Error(t, store.Check("bob", "pw"), "disabled user must not authenticate")
}
