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

package txmanager

import (
	"context"
	"fmt"

	"github.com/sage-x-project/privault/enclave"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
)

// Result is what Receive hands back to the caller: the recovered
// plaintext plus enough metadata to reconstruct the transaction's
// privacy context.
type Result struct {
	Plaintext   []byte
	PrivacyFlag byte
	AffectedB64 []string
	ExecHash    string
}

// Receive decrypts a previously stored transaction. When raw is true,
// hash identifies a pre-distribution raw transaction and to is
// ignored. Otherwise, to names the recipient key to decrypt with; if
// nil, Receive searches the enclave's own keys in order and uses the
// first that successfully decrypts.
func (m *Manager) Receive(ctx context.Context, hash payload.Hash, to *payload.PublicKey, raw bool) (*Result, error) {
	if raw {
		rec, err := m.rawStore.RetrieveByHash(ctx, hash)
		if err == store.ErrNotFound {
			return nil, ErrTransactionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("txmanager: retrieve raw: %w", err)
		}

		seal := &enclave.RawSeal{
			EncryptedPayload: rec.EncryptedPayload,
			EncryptedKey:     rec.EncryptedKey,
			Nonce:            rec.Nonce,
			Sender:           rec.Sender,
		}
		plaintext, err := m.enclave.UnencryptRawPayload(seal)
		if err != nil {
			return nil, fmt.Errorf("txmanager: decrypt raw: %w", err)
		}
		return &Result{
			Plaintext:   plaintext,
			PrivacyFlag: payload.StandardPrivate.Flag(),
		}, nil
	}

	rec, err := m.store.RetrieveByHash(ctx, hash)
	if err == store.ErrNotFound {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("txmanager: retrieve: %w", err)
	}
	p := rec.Payload

	var plaintext []byte
	if to != nil {
		plaintext, err = m.enclave.UnencryptTransaction(p, *to)
		if err != nil {
			return nil, fmt.Errorf("txmanager: decrypt: %w", err)
		}
	} else {
		plaintext, err = m.keySearchDecrypt(p)
		if err != nil {
			return nil, err
		}
	}

	affected := p.AffectedHashes()
	affectedB64 := make([]string, len(affected))
	for i, h := range affected {
		affectedB64[i] = h.Base64()
	}

	return &Result{
		Plaintext:   plaintext,
		PrivacyFlag: p.PrivacyMode.Flag(),
		AffectedB64: affectedB64,
		ExecHash:    string(p.ExecHash),
	}, nil
}

// keySearchDecrypt tries every local key in order and returns the
// plaintext from the first one that successfully decrypts p. Each
// trial failure is swallowed (EnclaveFailure, caught only inside this
// loop); only total exhaustion is reported to the caller.
func (m *Manager) keySearchDecrypt(p *payload.EncodedPayload) ([]byte, error) {
	for _, k := range m.enclave.PublicKeys() {
		plaintext, err := m.enclave.UnencryptTransaction(p, k)
		if err == nil {
			return plaintext, nil
		}
	}
	return nil, ErrRecipientKeyNotFound
}
