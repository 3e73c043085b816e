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
	// TransactionsSent tracks send and sendSignedTransaction calls.
	TransactionsSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "send",
			Name:      "transactions_total",
			Help:      "Total number of transactions sent, by privacy mode and outcome",
		},
		[]string{"privacy_mode", "status"}, // standard_private/psv, success/failure
	)

	// RecipientPublishes tracks per-recipient publish attempts.
	RecipientPublishes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "send",
			Name:      "recipient_publishes_total",
			Help:      "Total number of per-recipient publish attempts, by outcome",
		},
		[]string{"status"}, // success/failure
	)

	// SendDuration tracks wall-clock time for a full send call,
	// encryption through persistence and fan-out.
	SendDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "send",
			Name:      "duration_seconds",
			Help:      "Duration of a send call in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)
