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

// Package txmanager is the orchestrator: it binds the store, the
// enclave, the privacy validator, and the peer publisher into the
// operations a node exposes to its host process — send, receive,
// storePayload, resend, and the small bookkeeping operations around a
// stored transaction.
package txmanager

import (
	"context"
	"fmt"

	"github.com/sage-x-project/privault/enclave"
	"github.com/sage-x-project/privault/internal/logger"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/publisher"
	"github.com/sage-x-project/privault/store"
)

// ResendAcceptor is the resend manager's contract (§4.5): when this
// node receives back a payload it originated, AcceptOwnMessage merges
// the incoming recipient-box list with any stored record instead of
// treating it as an ordinary inbound transaction.
type ResendAcceptor interface {
	AcceptOwnMessage(ctx context.Context, sanitized *payload.EncodedPayload) error
}

// Manager is the transaction manager. It owns no long-lived mutable
// state beyond its injected collaborators; every operation is a short
// transaction over the store.
type Manager struct {
	store     store.Store
	rawStore  store.RawStore
	enclave   enclave.Enclave
	publisher publisher.Publisher
	resend    ResendAcceptor
	log       logger.Logger
}

// New constructs a Manager from its collaborators. log may be nil, in
// which case a default stdout logger is used.
func New(s store.Store, rs store.RawStore, e enclave.Enclave, p publisher.Publisher, resend ResendAcceptor, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Manager{
		store:     s,
		rawStore:  rs,
		enclave:   e,
		publisher: p,
		resend:    resend,
		log:       log,
	}
}

// AffectedNotFoundError is PrivacyViolation raised by buildAffected
// when the caller references an affected transaction hash this node
// cannot resolve from its local store.
type AffectedNotFoundError struct {
	HashBase64 string
}

func (e *AffectedNotFoundError) Error() string {
	return fmt.Sprintf("txmanager: unable to find affectedContractTransaction %s", e.HashBase64)
}

// buildAffected resolves each base64-encoded hash to a loaded
// AffectedTransaction via the store, in the store's return order. Any
// hash the store cannot find fails the whole call: a send is expected
// to reference affected transactions this node definitely holds.
func (m *Manager) buildAffected(ctx context.Context, affectedB64 []string) ([]payload.AffectedTransaction, error) {
	if len(affectedB64) == 0 {
		return nil, nil
	}

	hashes := make([]payload.Hash, len(affectedB64))
	want := make(map[payload.Hash]string, len(affectedB64))
	for i, b64 := range affectedB64 {
		h, err := payload.HashFromBase64(b64)
		if err != nil {
			return nil, fmt.Errorf("txmanager: decode affected hash %q: %w", b64, err)
		}
		hashes[i] = h
		want[h] = b64
	}

	records, err := m.store.FindByHashes(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("txmanager: find affected: %w", err)
	}

	found := make(map[payload.Hash]struct{}, len(records))
	out := make([]payload.AffectedTransaction, 0, len(records))
	for _, rec := range records {
		found[rec.Hash] = struct{}{}
		out = append(out, payload.AffectedTransaction{Hash: rec.Hash, Payload: rec.Payload})
	}

	for h, b64 := range want {
		if _, ok := found[h]; !ok {
			return nil, &AffectedNotFoundError{HashBase64: b64}
		}
	}
	return out, nil
}

// Store persists raw as an EncryptedRawTransaction ahead of a later
// signed send.
func (m *Manager) Store(ctx context.Context, raw []byte, from *payload.PublicKey) (payload.Hash, error) {
	sender := m.resolveSender(from)

	seal, err := m.enclave.EncryptRawPayload(raw, sender)
	if err != nil {
		return payload.Hash{}, fmt.Errorf("txmanager: encrypt raw: %w", err)
	}
	hash := payload.HashBytes(seal.EncryptedPayload)

	rec := &store.RawRecord{
		Hash:             hash,
		EncryptedPayload: seal.EncryptedPayload,
		EncryptedKey:     seal.EncryptedKey,
		Nonce:            seal.Nonce,
		Sender:           seal.Sender,
	}
	if err := m.rawStore.Save(ctx, rec); err != nil {
		return payload.Hash{}, fmt.Errorf("txmanager: save raw: %w", err)
	}
	return hash, nil
}

// Delete removes the encrypted transaction for hash. Deleting an
// absent hash is not an error (Open Question in the source design,
// resolved here as idempotent deletion, matching store.Store.Delete).
func (m *Manager) Delete(ctx context.Context, hash payload.Hash) error {
	if err := m.store.Delete(ctx, hash); err != nil {
		return fmt.Errorf("txmanager: delete: %w", err)
	}
	return nil
}

// IsSender reports whether this node originated the transaction at hash.
func (m *Manager) IsSender(ctx context.Context, hash payload.Hash) (bool, error) {
	rec, err := m.store.RetrieveByHash(ctx, hash)
	if err == store.ErrNotFound {
		return false, ErrTransactionNotFound
	}
	if err != nil {
		return false, fmt.Errorf("txmanager: retrieve: %w", err)
	}

	for _, k := range m.enclave.PublicKeys() {
		if k.Equal(rec.Payload.SenderKey) {
			return true, nil
		}
	}
	return false, nil
}

// GetParticipants returns the full recipient key list for hash,
// including the sender when present in it.
func (m *Manager) GetParticipants(ctx context.Context, hash payload.Hash) ([]payload.PublicKey, error) {
	rec, err := m.store.RetrieveByHash(ctx, hash)
	if err == store.ErrNotFound {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("txmanager: retrieve: %w", err)
	}
	return rec.Payload.RecipientKeys, nil
}

func (m *Manager) resolveSender(from *payload.PublicKey) payload.PublicKey {
	if from != nil {
		return *from
	}
	return m.enclave.DefaultPublicKey()
}

// dedupKeys deduplicates a key list by byte value, preserving the
// order of first appearance.
func dedupKeys(keys []payload.PublicKey) []payload.PublicKey {
	seen := make(map[string]struct{}, len(keys))
	out := make([]payload.PublicKey, 0, len(keys))
	for _, k := range keys {
		s := k.Base64()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, k)
	}
	return out
}
