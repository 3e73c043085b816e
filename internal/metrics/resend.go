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
	// ResendPages tracks paged store scans during a resend run.
	ResendPages = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resend",
			Name:      "pages_scanned_total",
			Help:      "Total number of store pages scanned by resend runs",
		},
	)

	// ResendSkippedMissingKey counts transactions skipped during resend
	// because no local key could decrypt them (log-and-skip policy).
	ResendSkippedMissingKey = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resend",
			Name:      "skipped_missing_key_total",
			Help:      "Total number of transactions skipped during resend for lack of a matching local key",
		},
	)

	// ResendDuration tracks wall-clock time for a full resend run.
	ResendDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resend",
			Name:      "duration_seconds",
			Help:      "Duration of a resend run in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)
)
