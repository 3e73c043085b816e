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
	"fmt"
	"net/url"
)

// ValidationError is one configuration problem found by
// ValidateConfiguration. Level is "error" or "warning"; only "error"
// is fatal to Load.
type ValidationError struct {
	Field   string
	Message string
	Level   string
}

// ValidateConfiguration checks cfg for the problems a deployment is
// most likely to introduce by hand: a chosen store backend with no
// connection details, a malformed peer URL, an unsupported log level.
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateStoreConfig(cfg.Store)...)
	errs = append(errs, validatePublisherConfig(cfg.Publisher)...)
	errs = append(errs, validateLoggingConfig(cfg.Logging)...)

	return errs
}

func validateStoreConfig(cfg StoreConfig) []ValidationError {
	var errs []ValidationError

	switch cfg.Backend {
	case "memory":
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, ValidationError{
				Field: "Store.Postgres.Host", Message: "host is required for the postgres backend", Level: "error",
			})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, ValidationError{
				Field: "Store.Postgres.Database", Message: "database is required for the postgres backend", Level: "error",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "Store.Backend",
			Message: fmt.Sprintf("unknown backend %q, expected \"memory\" or \"postgres\"", cfg.Backend),
			Level:   "error",
		})
	}

	return errs
}

func validatePublisherConfig(cfg PublisherConfig) []ValidationError {
	var errs []ValidationError

	for peer, peerURL := range cfg.Peers {
		if _, err := url.Parse(peerURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("Publisher.Peers[%s]", peer),
				Message: fmt.Sprintf("invalid peer URL: %v", err),
				Level:   "error",
			})
		}
	}

	return errs
}

func validateLoggingConfig(cfg LoggingConfig) []ValidationError {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return []ValidationError{{
			Field:   "Logging.Level",
			Message: fmt.Sprintf("unknown level %q, expected debug, info, warn, or error", cfg.Level),
			Level:   "warning",
		}}
	}
}
