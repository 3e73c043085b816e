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

// Package privacy enforces the two consistency rules a new transaction
// must satisfy against the transactions it declares as affected: mode
// consistency, and, under PRIVATE_STATE_VALIDATION, recipient-set
// equality.
package privacy

import (
	"fmt"

	"github.com/sage-x-project/privault/payload"
)

// Reason is a closed enumeration of the ways a Validate call can fail.
type Reason int

const (
	// ReasonModeMismatch: an affected transaction does not share the
	// candidate's privacy mode.
	ReasonModeMismatch Reason = iota
	// ReasonRecipientSetMismatch: under PSV, an affected transaction's
	// recipient set is not equal to the candidate's.
	ReasonRecipientSetMismatch
	// ReasonInvalidSecurityHash: under PSV, the enclave recomputed a
	// security hash for an affected transaction that disagrees with
	// what the candidate claims.
	ReasonInvalidSecurityHash
)

func (r Reason) String() string {
	switch r {
	case ReasonModeMismatch:
		return "mode mismatch"
	case ReasonRecipientSetMismatch:
		return "recipient set mismatch"
	case ReasonInvalidSecurityHash:
		return "invalid security hash"
	default:
		return "unknown"
	}
}

// ViolationError is PrivacyViolation: the candidate transaction is
// inconsistent with one specific affected transaction.
type ViolationError struct {
	Reason   Reason
	Affected payload.Hash
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("privacy: %s against affected transaction %s", e.Reason, e.Affected.Base64())
}

// Validate checks candidate against every transaction in affected and
// returns the first violation found, walking affected in its given
// (deterministic, insertion) order. A nil return means candidate is
// consistent with every affected transaction supplied.
//
// Rule 1 (always): every affected transaction must share candidate's
// privacy mode.
// Rule 2 (PSV only): every affected transaction's recipient set must be
// exactly equal to candidate's, as sets (order-independent).
func Validate(candidate *payload.EncodedPayload, affected []payload.AffectedTransaction) error {
	want := recipientSet(candidate.RecipientKeys)
	checkRecipients := candidate.PrivacyMode == payload.PSV

	for _, a := range affected {
		if a.Payload.PrivacyMode != candidate.PrivacyMode {
			return &ViolationError{Reason: ReasonModeMismatch, Affected: a.Hash}
		}
		if checkRecipients && !sameSet(want, recipientSet(a.Payload.RecipientKeys)) {
			return &ViolationError{Reason: ReasonRecipientSetMismatch, Affected: a.Hash}
		}
	}
	return nil
}

func recipientSet(keys []payload.PublicKey) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k.Base64()] = struct{}{}
	}
	return set
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
