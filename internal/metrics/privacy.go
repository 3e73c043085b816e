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
	// PrivacyViolations tracks privacy.Validate rejections by reason.
	PrivacyViolations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "privacy",
			Name:      "violations_total",
			Help:      "Total number of privacy validation rejections, by reason",
		},
		[]string{"reason"}, // mode_mismatch, recipient_set_mismatch
	)

	// InvalidSecurityHashes tracks affected-transaction security hash
	// mismatches found by the enclave.
	InvalidSecurityHashes = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "privacy",
			Name:      "invalid_security_hashes_total",
			Help:      "Total number of affected-transaction security hash mismatches detected",
		},
	)
)
