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

package sealed

import (
	"crypto/ecdh"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/privault/enclave"
	"github.com/sage-x-project/privault/payload"
)

func newTestEnclave(t *testing.T) (*Enclave, payload.PublicKey) {
	t.Helper()
	e := New(MasterKeyFromPassphrase("test-passphrase"), nil)
	pub, err := e.GenerateKey()
	require.NoError(t, err)
	return e, pub
}

func TestGenerateKeySetsDefaultIdentity(t *testing.T) {
	e, pub := newTestEnclave(t)
	require.Equal(t, pub, e.DefaultPublicKey())
	require.Contains(t, e.PublicKeys(), pub)
}

func TestExportImportKeyRoundTrip(t *testing.T) {
	e, pub := newTestEnclave(t)
	raw, err := e.ExportKey(pub)
	require.NoError(t, err)

	other := New(MasterKeyFromPassphrase("test-passphrase"), nil)
	imported, err := ecdh.X25519().NewPrivateKey(raw)
	require.NoError(t, err)
	gotPub := other.ImportKey(imported)
	require.Equal(t, pub, gotPub)
}

func TestExportKeyUnknown(t *testing.T) {
	e, _ := newTestEnclave(t)
	_, err := e.ExportKey(payload.PublicKey{9, 9, 9})
	require.Error(t, err)
}

func TestEncryptDecryptPayloadRoundTrip(t *testing.T) {
	sender, senderPub := newTestEnclave(t)
	recipientEnclave, recipientPub := newTestEnclave(t)

	plaintext := []byte("top secret transaction body")
	p, err := sender.EncryptPayload(plaintext, senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	got, err := recipientEnclave.UnencryptTransaction(p, recipientPub)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestUnencryptTransactionWrongKeyFails(t *testing.T) {
	sender, senderPub := newTestEnclave(t)
	_, recipientPub := newTestEnclave(t)
	stranger, strangerPub := newTestEnclave(t)

	p, err := sender.EncryptPayload([]byte("msg"), senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)

	_, err = stranger.UnencryptTransaction(p, strangerPub)
	require.ErrorIs(t, err, enclave.ErrDecryptFailed)
}

func TestEncryptRawPayloadRoundTrip(t *testing.T) {
	e, senderPub := newTestEnclave(t)
	plaintext := []byte("pre-distribution plaintext")

	raw, err := e.EncryptRawPayload(plaintext, senderPub)
	require.NoError(t, err)

	got, err := e.UnencryptRawPayload(raw)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEncryptPayloadFromRaw(t *testing.T) {
	sender, senderPub := newTestEnclave(t)
	recipientEnclave, recipientPub := newTestEnclave(t)

	plaintext := []byte("sealed ahead of signing")
	raw, err := sender.EncryptRawPayload(plaintext, senderPub)
	require.NoError(t, err)

	p, err := sender.EncryptPayloadFromRaw(raw, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)

	got, err := recipientEnclave.UnencryptTransaction(p, recipientPub)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestFindInvalidSecurityHashes(t *testing.T) {
	sender, senderPub := newTestEnclave(t)
	_, recipientPub := newTestEnclave(t)

	affectedPayload, err := sender.EncryptPayload([]byte("affected body"), senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	affectedHash := payload.HashBytes(affectedPayload.CipherText)

	execHash := []byte("exec-hash")
	affected := []payload.AffectedTransaction{{Hash: affectedHash, Payload: affectedPayload}}

	candidate, err := sender.EncryptPayload([]byte("candidate"), senderPub, []payload.PublicKey{recipientPub}, payload.PSV, affected, execHash)
	require.NoError(t, err)

	invalid := sender.FindInvalidSecurityHashes(candidate, affected)
	require.Empty(t, invalid)

	tampered := *candidate
	tampered.AffectedContractTransactions = append([]payload.AffectedEntry(nil), candidate.AffectedContractTransactions...)
	tampered.AffectedContractTransactions[0].SecurityHash = []byte("wrong")
	invalid = sender.FindInvalidSecurityHashes(&tampered, affected)
	require.Contains(t, invalid, affectedHash)
}

func TestMasterKeyFromPassphraseDeterministic(t *testing.T) {
	a := MasterKeyFromPassphrase("shared-secret")
	b := MasterKeyFromPassphrase("shared-secret")
	require.Equal(t, a, b)

	c := MasterKeyFromPassphrase("different-secret")
	require.NotEqual(t, a, c)
}
