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

package privacy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/privault/payload"
)

func key(b byte) payload.PublicKey {
	return payload.PublicKey{b, b, b}
}

func affected(hash byte, mode payload.PrivacyMode, recipients ...payload.PublicKey) payload.AffectedTransaction {
	return payload.AffectedTransaction{
		Hash: payload.Hash{hash},
		Payload: &payload.EncodedPayload{
			PrivacyMode:   mode,
			RecipientKeys: recipients,
		},
	}
}

func TestValidateNoAffected(t *testing.T) {
	candidate := &payload.EncodedPayload{PrivacyMode: payload.StandardPrivate, RecipientKeys: []payload.PublicKey{key(1)}}
	require.NoError(t, Validate(candidate, nil))
}

func TestValidateModeMismatch(t *testing.T) {
	candidate := &payload.EncodedPayload{PrivacyMode: payload.PSV, RecipientKeys: []payload.PublicKey{key(1), key(2)}}
	aff := []payload.AffectedTransaction{
		affected(1, payload.StandardPrivate, key(1), key(2)),
	}

	err := Validate(candidate, aff)
	require.Error(t, err)

	var verr *ViolationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ReasonModeMismatch, verr.Reason)
	require.Equal(t, payload.Hash{1}, verr.Affected)
}

func TestValidatePSVRecipientSetMismatch(t *testing.T) {
	candidate := &payload.EncodedPayload{PrivacyMode: payload.PSV, RecipientKeys: []payload.PublicKey{key(1), key(2)}}
	aff := []payload.AffectedTransaction{
		affected(1, payload.PSV, key(1), key(2)), // matches, passes
		affected(2, payload.PSV, key(1)),          // different set, fails
	}

	err := Validate(candidate, aff)
	require.Error(t, err)

	var verr *ViolationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ReasonRecipientSetMismatch, verr.Reason)
	require.Equal(t, payload.Hash{2}, verr.Affected)
}

func TestValidateStandardPrivateIgnoresRecipientSet(t *testing.T) {
	candidate := &payload.EncodedPayload{PrivacyMode: payload.StandardPrivate, RecipientKeys: []payload.PublicKey{key(1)}}
	aff := []payload.AffectedTransaction{
		affected(1, payload.StandardPrivate, key(9), key(8)), // different recipients, irrelevant outside PSV
	}
	require.NoError(t, Validate(candidate, aff))
}

// TestValidateFirstOffenderInOrder checks the single deterministic
// pass: when the first affected entry fails on recipient-set equality
// before a later entry would have failed on mode, the first entry's
// violation is reported, not a scan-all-then-pick-mode-first result.
func TestValidateFirstOffenderInOrder(t *testing.T) {
	candidate := &payload.EncodedPayload{PrivacyMode: payload.PSV, RecipientKeys: []payload.PublicKey{key(1), key(2)}}
	aff := []payload.AffectedTransaction{
		affected(1, payload.PSV, key(1)),              // mode OK, recipient set fails first
		affected(2, payload.StandardPrivate, key(1), key(2)), // mode fails, later in order
	}

	err := Validate(candidate, aff)
	require.Error(t, err)

	var verr *ViolationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ReasonRecipientSetMismatch, verr.Reason)
	require.Equal(t, payload.Hash{1}, verr.Affected)
}

func TestReasonString(t *testing.T) {
	require.Equal(t, "mode mismatch", ReasonModeMismatch.String())
	require.Equal(t, "recipient set mismatch", ReasonRecipientSetMismatch.String())
	require.Equal(t, "invalid security hash", ReasonInvalidSecurityHash.String())
}
