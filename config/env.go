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

package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} references in
// input with the named environment variable's value, or its default
// when the variable is unset or empty.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment
// variables across every string field a deployment is likely to
// template: connection parameters, peer URLs, and output paths.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Node.ListenAddr = SubstituteEnvVars(cfg.Node.ListenAddr)

	cfg.Store.Backend = SubstituteEnvVars(cfg.Store.Backend)
	cfg.Store.Postgres.Host = SubstituteEnvVars(cfg.Store.Postgres.Host)
	cfg.Store.Postgres.User = SubstituteEnvVars(cfg.Store.Postgres.User)
	cfg.Store.Postgres.Password = SubstituteEnvVars(cfg.Store.Postgres.Password)
	cfg.Store.Postgres.Database = SubstituteEnvVars(cfg.Store.Postgres.Database)
	cfg.Store.Postgres.SSLMode = SubstituteEnvVars(cfg.Store.Postgres.SSLMode)

	cfg.Enclave.PassphraseEnv = SubstituteEnvVars(cfg.Enclave.PassphraseEnv)
	for i, k := range cfg.Enclave.ForwardingKeysB64 {
		cfg.Enclave.ForwardingKeysB64[i] = SubstituteEnvVars(k)
	}

	for peer, url := range cfg.Publisher.Peers {
		cfg.Publisher.Peers[peer] = SubstituteEnvVars(url)
	}

	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
	cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)

	cfg.Metrics.Addr = SubstituteEnvVars(cfg.Metrics.Addr)
	cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)

	cfg.Health.Addr = SubstituteEnvVars(cfg.Health.Addr)
	cfg.Health.Path = SubstituteEnvVars(cfg.Health.Path)
}

// GetEnvironment returns the deployment environment from PRIVAULT_ENV,
// falling back to ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("PRIVAULT_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether the current environment is production.
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether the current environment is
// development or local.
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
