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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyBase64RoundTrip(t *testing.T) {
	want := PublicKey{1, 2, 3, 4}
	got, err := PublicKeyFromBase64(want.Base64())
	require.NoError(t, err)
	require.True(t, want.Equal(got))
}

func TestHashBase64RoundTrip(t *testing.T) {
	want := HashBytes([]byte("some ciphertext"))
	got, err := HashFromBase64(want.Base64())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestHashFromBase64WrongLength(t *testing.T) {
	_, err := HashFromBase64("AAAA")
	require.Error(t, err)
}

func TestHashIsZero(t *testing.T) {
	var h Hash
	require.True(t, h.IsZero())
	require.False(t, HashBytes([]byte("x")).IsZero())
}

func TestModeFromFlag(t *testing.T) {
	m, err := ModeFromFlag(0)
	require.NoError(t, err)
	require.Equal(t, StandardPrivate, m)

	m, err = ModeFromFlag(1)
	require.NoError(t, err)
	require.Equal(t, PSV, m)

	_, err = ModeFromFlag(7)
	require.ErrorIs(t, err, ErrUnknownPrivacyMode)
}

func TestEncodedPayloadValidate(t *testing.T) {
	base := &EncodedPayload{
		RecipientBoxes: [][]byte{[]byte("box")},
		PrivacyMode:    StandardPrivate,
	}
	require.NoError(t, base.Validate())

	noBoxes := &EncodedPayload{PrivacyMode: StandardPrivate}
	require.Error(t, noBoxes.Validate())

	mismatched := &EncodedPayload{
		RecipientBoxes: [][]byte{[]byte("a"), []byte("b")},
		RecipientKeys:  []PublicKey{{1}},
		PrivacyMode:    StandardPrivate,
	}
	require.Error(t, mismatched.Validate())

	psvNoHash := &EncodedPayload{
		RecipientBoxes: [][]byte{[]byte("box")},
		PrivacyMode:    PSV,
	}
	require.Error(t, psvNoHash.Validate())

	psvWithHash := &EncodedPayload{
		RecipientBoxes: [][]byte{[]byte("box")},
		PrivacyMode:    PSV,
		ExecHash:       []byte{1, 2, 3},
	}
	require.NoError(t, psvWithHash.Validate())

	standardWithHash := &EncodedPayload{
		RecipientBoxes: [][]byte{[]byte("box")},
		PrivacyMode:    StandardPrivate,
		ExecHash:       []byte{1},
	}
	require.Error(t, standardWithHash.Validate())
}

func TestAffectedHashesPreservesOrder(t *testing.T) {
	p := &EncodedPayload{
		AffectedContractTransactions: []AffectedEntry{
			{Hash: Hash{1}},
			{Hash: Hash{2}},
			{Hash: Hash{3}},
		},
	}
	require.Equal(t, []Hash{{1}, {2}, {3}}, p.AffectedHashes())
}

func TestSecurityHashFor(t *testing.T) {
	p := &EncodedPayload{
		AffectedContractTransactions: []AffectedEntry{
			{Hash: Hash{1}, SecurityHash: []byte("h1")},
		},
	}
	got, ok := p.SecurityHashFor(Hash{1})
	require.True(t, ok)
	require.Equal(t, []byte("h1"), got)

	_, ok = p.SecurityHashFor(Hash{9})
	require.False(t, ok)
}

func TestRemoveAffected(t *testing.T) {
	p := &EncodedPayload{
		AffectedContractTransactions: []AffectedEntry{
			{Hash: Hash{1}},
			{Hash: Hash{2}},
			{Hash: Hash{3}},
		},
	}
	out := p.RemoveAffected(map[Hash]struct{}{{2}: {}})
	require.Equal(t, []Hash{{1}, {3}}, out.AffectedHashes())
	// original is untouched
	require.Len(t, p.AffectedContractTransactions, 3)
}

func TestRemoveAffectedEmptySet(t *testing.T) {
	p := &EncodedPayload{AffectedContractTransactions: []AffectedEntry{{Hash: Hash{1}}}}
	out := p.RemoveAffected(nil)
	require.Equal(t, p.AffectedContractTransactions, out.AffectedContractTransactions)
}

func TestRecipientIndex(t *testing.T) {
	p := &EncodedPayload{RecipientKeys: []PublicKey{{1}, {2}, {3}}}
	require.Equal(t, 1, p.RecipientIndex(PublicKey{2}))
	require.Equal(t, -1, p.RecipientIndex(PublicKey{9}))
}
