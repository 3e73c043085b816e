// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates the host process's configuration:
// which store backend to run against, how the enclave derives its
// master key, which peers the publisher knows about, and the usual
// ambient concerns (logging, metrics, health).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads environment variables from path into the process
// environment for local/dev runs, ahead of Load's ${VAR} substitution
// and PRIVAULT_* overrides. A missing file is not an error; an
// existing but malformed one is.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Config is the root configuration structure, loaded from YAML or
// JSON and then overlaid with environment variables.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Node        NodeConfig      `yaml:"node" json:"node"`
	Store       StoreConfig     `yaml:"store" json:"store"`
	Enclave     EnclaveConfig   `yaml:"enclave" json:"enclave"`
	Publisher   PublisherConfig `yaml:"publisher" json:"publisher"`
	Resend      ResendConfig    `yaml:"resend" json:"resend"`
	Logging     LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig   `yaml:"metrics" json:"metrics"`
	Health      HealthConfig    `yaml:"health" json:"health"`
}

// NodeConfig carries this node's own network identity.
type NodeConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend  string         `yaml:"backend" json:"backend"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// PostgresConfig holds connection parameters for the postgres backend.
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// EnclaveConfig configures the local sealed enclave: where its master
// key passphrase comes from, and which keys are always added as
// implicit recipients.
type EnclaveConfig struct {
	PassphraseEnv     string   `yaml:"passphrase_env" json:"passphrase_env"`
	ForwardingKeysB64 []string `yaml:"forwarding_keys" json:"forwarding_keys"`
}

// PublisherConfig configures the websocket peer publisher: per-call
// timeouts and the static base64(publicKey) -> peer URL map.
type PublisherConfig struct {
	DialTimeout  time.Duration     `yaml:"dial_timeout" json:"dial_timeout"`
	WriteTimeout time.Duration     `yaml:"write_timeout" json:"write_timeout"`
	ReadTimeout  time.Duration     `yaml:"read_timeout" json:"read_timeout"`
	Peers        map[string]string `yaml:"peers" json:"peers"`
}

// ResendConfig configures the catch-up scan.
type ResendConfig struct {
	FetchSize int `yaml:"fetch_size" json:"fetch_size"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures the liveness/readiness HTTP endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from path, trying YAML first and
// falling back to JSON, then applies defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse %s (tried YAML and JSON): %w", path, err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path as YAML, or JSON when path ends in
// ".json".
func SaveToFile(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Node.ListenAddr == "" {
		cfg.Node.ListenAddr = ":9090"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = "disable"
	}
	if cfg.Enclave.PassphraseEnv == "" {
		cfg.Enclave.PassphraseEnv = "PRIVAULT_MASTER_KEY_PASSPHRASE"
	}
	if cfg.Publisher.DialTimeout == 0 {
		cfg.Publisher.DialTimeout = 5 * time.Second
	}
	if cfg.Publisher.WriteTimeout == 0 {
		cfg.Publisher.WriteTimeout = 5 * time.Second
	}
	if cfg.Publisher.ReadTimeout == 0 {
		cfg.Publisher.ReadTimeout = 30 * time.Second
	}
	if cfg.Resend.FetchSize == 0 {
		cfg.Resend.FetchSize = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":9092"
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
}
