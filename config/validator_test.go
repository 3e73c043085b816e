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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateConfigurationMemoryBackendIsValid(t *testing.T) {
	cfg := &Config{
		Store:   StoreConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info"},
	}
	require.Empty(t, ValidateConfiguration(cfg))
}

func TestValidateConfigurationPostgresRequiresHostAndDatabase(t *testing.T) {
	cfg := &Config{
		Store:   StoreConfig{Backend: "postgres"},
		Logging: LoggingConfig{Level: "info"},
	}
	errs := ValidateConfiguration(cfg)
	require.Len(t, errs, 2)
	for _, e := range errs {
		require.Equal(t, "error", e.Level)
	}
}

func TestValidateConfigurationPostgresWithDetailsIsValid(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{
			Backend:  "postgres",
			Postgres: PostgresConfig{Host: "db", Database: "privault"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
	require.Empty(t, ValidateConfiguration(cfg))
}

func TestValidateConfigurationUnknownBackend(t *testing.T) {
	cfg := &Config{
		Store:   StoreConfig{Backend: "sqlite"},
		Logging: LoggingConfig{Level: "info"},
	}
	errs := ValidateConfiguration(cfg)
	require.Len(t, errs, 1)
	require.Equal(t, "Store.Backend", errs[0].Field)
	require.Equal(t, "error", errs[0].Level)
}

func TestValidateConfigurationInvalidPeerURL(t *testing.T) {
	cfg := &Config{
		Store:   StoreConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info"},
		Publisher: PublisherConfig{
			Peers: map[string]string{"node-a": "://not-a-url"},
		},
	}
	errs := ValidateConfiguration(cfg)
	require.Len(t, errs, 1)
	require.Equal(t, "error", errs[0].Level)
}

func TestValidateConfigurationUnknownLogLevelIsWarning(t *testing.T) {
	cfg := &Config{
		Store:   StoreConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "verbose"},
	}
	errs := ValidateConfiguration(cfg)
	require.Len(t, errs, 1)
	require.Equal(t, "warning", errs[0].Level)
}
