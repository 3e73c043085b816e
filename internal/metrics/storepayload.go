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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StorePayloadRequests tracks storePayload (receive-path, raw
	// projection persistence) calls by outcome. "probed" counts the
	// anti-probing silent-success responses separately from genuine
	// stores, so operators can see attempted enumeration without it
	// looking like real traffic.
	StorePayloadRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storepayload",
			Name:      "requests_total",
			Help:      "Total number of storePayload calls, by outcome",
		},
		[]string{"status"}, // stored/probed/failure
	)
)
