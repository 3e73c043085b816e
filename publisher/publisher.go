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

// Package publisher provides the transport-layer abstraction the
// transaction manager depends on to propagate per-recipient payload
// projections to peers. The manager never touches a network socket
// directly; it only knows this contract, keeping it independent of
// whatever peer-discovery and transport stack a deployment chooses.
package publisher

import (
	"context"
	"errors"

	"github.com/sage-x-project/privault/payload"
)

// ErrPublishFailed is PublishFailure: the peer for recipient could not
// be reached, or rejected the projection.
var ErrPublishFailed = errors.New("publisher: publish failed")

// Publisher propagates a single recipient's payload projection to that
// recipient's peer node.
type Publisher interface {
	// PublishPayload sends p (already projected down to recipient's
	// single box, via payload.ForRecipient) to the peer that owns
	// recipient. It returns ErrPublishFailed, wrapped with context, on
	// any network or protocol failure.
	PublishPayload(ctx context.Context, p *payload.EncodedPayload, recipient payload.PublicKey) error
}
