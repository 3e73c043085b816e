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

package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the aggregate health status as JSON, returning 503
// when any check is unhealthy.
func Handler(checker *Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		results := checker.RunAll(ctx)
		status := checker.OverallStatus(ctx)

		w.Header().Set("Content-Type", "application/json")
		if status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(struct {
			Status Status                  `json:"status"`
			Checks map[string]*CheckResult `json:"checks"`
		}{status, results})
	})
}

// StartServer runs a standalone health HTTP server at addr under
// path, blocking until it exits.
func StartServer(addr, path string, checker *Checker) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler(checker))
	return http.ListenAndServe(addr, mux)
}
