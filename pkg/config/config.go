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

// Package config provides configuration management for stomp-go: the server
// domain, seeded user credentials, the reactor pool size, and the optional
// metrics, WebSocket and audit endpoints.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/turtacn/stomp-go/pkg/auth"
)

// UserConfig seeds one credential entry.
type UserConfig struct {
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"password"`
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	Enabled   bool   `yaml:"enabled" json:"enabled"`
}

// BrokerConfig holds the broker settings.
type BrokerConfig struct {
	// Host is the domain literal CONNECT frames must present.
	Host string `yaml:"host" json:"host"`
	// ReactorPoolSize bounds the reactor worker pool; 0 means one worker
	// per CPU.
	ReactorPoolSize int `yaml:"reactor_pool_size" json:"reactor_pool_size"`
	// MetricsAddr is the Prometheus listen address; empty disables it.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// WSAddr is the WebSocket listen address; empty disables it.
	WSAddr string `yaml:"ws_addr" json:"ws_addr"`
	// AuditDSN selects the PostgreSQL audit store; empty keeps audit
	// records in memory.
	AuditDSN string       `yaml:"audit_dsn" json:"audit_dsn"`
	Users    []UserConfig `yaml:"users" json:"users"`
}

// Config is the complete configuration.
type Config struct {
	Broker BrokerConfig `yaml:"broker" json:"broker"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Host: "stomp.cs.bgu.ac.il",
		},
	}
}

// LoadConfig loads configuration from a YAML or JSON file. An empty path
// returns DefaultConfig.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Printf("[INFO] Configuration loaded from %s", configPath)
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Broker.Host == "" {
		return fmt.Errorf("broker host must not be empty")
	}
	if config.Broker.ReactorPoolSize < 0 {
		return fmt.Errorf("reactor_pool_size must not be negative")
	}
	for i, user := range config.Broker.Users {
		if user.Username == "" {
			return fmt.Errorf("user %d: username must not be empty", i)
		}
		if !auth.HashAlgorithm(user.Algorithm).Valid() {
			return fmt.Errorf("user %s: unsupported algorithm %q", user.Username, user.Algorithm)
		}
	}
	return nil
}

// BuildCredentials seeds an auth store with the configured users.
func (c *Config) BuildCredentials() (*auth.Store, error) {
	store := auth.NewStore(auth.HashSHA256)
	for _, user := range c.Broker.Users {
		if err := store.AddUser(user.Username, user.Password, auth.HashAlgorithm(user.Algorithm)); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", user.Username, err)
		}
		if !user.Enabled {
			if err := store.SetUserEnabled(user.Username, false); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}
