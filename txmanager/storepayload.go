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

	"github.com/sage-x-project/privault/internal/logger"
	"github.com/sage-x-project/privault/internal/metrics"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/privacy"
	"github.com/sage-x-project/privault/store"
)

// StorePayload is the inbound path: it decodes a payload received from
// a peer, validates it against the local store, and persists it.
//
// Several failure modes are deliberately silent — they return the
// transaction hash with nothing written, never an error — because they
// double as a recipient-discovery-attack countermeasure: a probing
// peer cannot distinguish "rejected" from "accepted but irrelevant".
func (m *Manager) StorePayload(ctx context.Context, encoded []byte) (payload.Hash, error) {
	p, err := payload.Decode(encoded)
	if err != nil {
		metrics.StorePayloadRequests.WithLabelValues("failure").Inc()
		return payload.Hash{}, fmt.Errorf("txmanager: decode: %w", err)
	}
	hash := payload.HashBytes(p.CipherText)

	affected, err := m.resolveAffectedLenient(ctx, p)
	if err != nil {
		metrics.StorePayloadRequests.WithLabelValues("failure").Inc()
		return payload.Hash{}, fmt.Errorf("txmanager: resolve affected: %w", err)
	}

	for _, a := range affected {
		if a.Payload.PrivacyMode != p.PrivacyMode {
			m.log.Info("storePayload: mode mismatch against affected transaction, dropping silently",
				logger.String("hash", hash.Base64()), logger.String("affected", a.Hash.Base64()))
			metrics.StorePayloadRequests.WithLabelValues("probed").Inc()
			return hash, nil
		}
	}

	if p.PrivacyMode == payload.PSV {
		if len(affected) != len(p.AffectedContractTransactions) {
			m.log.Info("storePayload: unresolved affected transaction under PSV, dropping silently",
				logger.String("hash", hash.Base64()))
			metrics.StorePayloadRequests.WithLabelValues("probed").Inc()
			return hash, nil
		}

		if !senderIsParticipant(p.SenderKey, affected) {
			m.log.Info("storePayload: sender is not a participant of any affected transaction, dropping silently",
				logger.String("hash", hash.Base64()))
			metrics.StorePayloadRequests.WithLabelValues("probed").Inc()
			return hash, nil
		}

		if err := privacy.Validate(p, affected); err != nil {
			m.recordPrivacyViolation(err)
			metrics.StorePayloadRequests.WithLabelValues("failure").Inc()
			return payload.Hash{}, err
		}
	}

	invalid := m.enclave.FindInvalidSecurityHashes(p, affected)
	sanitized := p
	if len(invalid) > 0 {
		metrics.InvalidSecurityHashes.Add(float64(len(invalid)))
		if p.PrivacyMode == payload.PSV {
			metrics.PrivacyViolations.WithLabelValues("invalid_security_hash").Inc()
			metrics.StorePayloadRequests.WithLabelValues("failure").Inc()
			return payload.Hash{}, &privacy.ViolationError{
				Reason:   privacy.ReasonInvalidSecurityHash,
				Affected: firstInOrder(p, invalid),
			}
		}
		sanitized = p.RemoveAffected(invalid)
	}

	if senderIsLocal(sanitized.SenderKey, m.enclave.PublicKeys()) {
		// A node receiving back a message it originated, during catch-up:
		// the resend manager owns merging this into any existing record.
		if err := m.resend.AcceptOwnMessage(ctx, sanitized); err != nil {
			metrics.StorePayloadRequests.WithLabelValues("failure").Inc()
			return payload.Hash{}, fmt.Errorf("txmanager: accept own message: %w", err)
		}
	} else {
		if err := m.store.Save(ctx, &store.Record{Hash: hash, Payload: sanitized}); err != nil {
			metrics.StorePayloadRequests.WithLabelValues("failure").Inc()
			return payload.Hash{}, fmt.Errorf("txmanager: save: %w", err)
		}
	}

	metrics.StorePayloadRequests.WithLabelValues("stored").Inc()
	return hash, nil
}

// resolveAffectedLenient resolves p's affected hashes against the
// local store, silently omitting any hash the store does not hold
// (unlike buildAffected, which is strict for an outbound send).
func (m *Manager) resolveAffectedLenient(ctx context.Context, p *payload.EncodedPayload) ([]payload.AffectedTransaction, error) {
	hashes := p.AffectedHashes()
	if len(hashes) == 0 {
		return nil, nil
	}
	records, err := m.store.FindByHashes(ctx, hashes)
	if err != nil {
		return nil, err
	}
	out := make([]payload.AffectedTransaction, 0, len(records))
	for _, rec := range records {
		out = append(out, payload.AffectedTransaction{Hash: rec.Hash, Payload: rec.Payload})
	}
	return out, nil
}

func senderIsParticipant(sender payload.PublicKey, affected []payload.AffectedTransaction) bool {
	for _, a := range affected {
		for _, k := range a.Payload.RecipientKeys {
			if k.Equal(sender) {
				return true
			}
		}
	}
	return false
}

func senderIsLocal(sender payload.PublicKey, local []payload.PublicKey) bool {
	for _, k := range local {
		if k.Equal(sender) {
			return true
		}
	}
	return false
}

// firstInOrder returns the first hash in p's own affected-entry order
// that appears in invalid, keeping error reporting deterministic.
func firstInOrder(p *payload.EncodedPayload, invalid map[payload.Hash]struct{}) payload.Hash {
	for _, e := range p.AffectedContractTransactions {
		if _, bad := invalid[e.Hash]; bad {
			return e.Hash
		}
	}
	return payload.Hash{}
}
