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

package payload

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// ErrDecodeFailed is returned when a stored or received payload cannot
// be decoded.
var ErrDecodeFailed = errors.New("payload: decode failed")

// ErrRecipientUnknown is returned by ForRecipient when the requested
// recipient does not appear in the payload's recipient key list.
var ErrRecipientUnknown = errors.New("payload: recipient unknown")

// Encode serializes a payload to its wire/at-rest byte representation.
// RLP gives us the count-prefixed sequences and length-prefixed byte
// strings the wire format calls for, with no bespoke framing code.
func Encode(p *EncodedPayload) ([]byte, error) {
	b, err := rlp.EncodeToBytes(p)
	if err != nil {
		return nil, fmt.Errorf("payload: encode: %w", err)
	}
	return b, nil
}

// Decode parses bytes previously produced by Encode. A malformed input
// is reported as ErrDecodeFailed so callers can treat it uniformly.
func Decode(data []byte) (*EncodedPayload, error) {
	var p EncodedPayload
	if err := rlp.DecodeBytes(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return &p, nil
}

// ForRecipient projects a payload down to the single recipient box and
// key belonging to recipient. The projection carries an empty
// RecipientKeys when externalOnly is true (the payload is about to be
// published to a party who must not learn the full recipient list),
// otherwise it carries the singleton [recipient].
func ForRecipient(p *EncodedPayload, recipient PublicKey, externalOnly bool) (*EncodedPayload, error) {
	idx := p.RecipientIndex(recipient)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRecipientUnknown, recipient.Base64())
	}

	out := *p
	out.RecipientBoxes = [][]byte{p.RecipientBoxes[idx]}
	if externalOnly {
		out.RecipientKeys = nil
	} else {
		out.RecipientKeys = []PublicKey{recipient}
	}
	out.AffectedContractTransactions = append([]AffectedEntry(nil), p.AffectedContractTransactions...)
	return &out, nil
}

// WithRecipient returns a copy of p with recipient appended to
// RecipientKeys. Boxes are left untouched. Used to re-label a payload
// that was stored with its recipient list stripped on receipt, once
// decryption has revealed which key actually worked.
func WithRecipient(p *EncodedPayload, recipient PublicKey) *EncodedPayload {
	out := *p
	out.RecipientKeys = append(append([]PublicKey(nil), p.RecipientKeys...), recipient)
	out.AffectedContractTransactions = append([]AffectedEntry(nil), p.AffectedContractTransactions...)
	return &out
}
