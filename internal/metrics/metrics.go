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

// Package metrics exposes Prometheus instrumentation for the
// transaction manager, one file per subsystem, all registered against
// the single package Registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "privault"

// Registry is the collector registry every metric in this package
// registers against. Kept package-private-by-convention but exported
// so cmd/privaultd can mount it under promhttp without a second global.
var Registry = prometheus.NewRegistry()
