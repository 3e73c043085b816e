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
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sage-x-project/privault/enclave"
	"github.com/sage-x-project/privault/internal/logger"
	"github.com/sage-x-project/privault/internal/metrics"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/privacy"
	"github.com/sage-x-project/privault/store"
)

// Send encrypts raw for the recipient set to ∪ {sender} ∪ the
// enclave's forwarding keys, validates it against affected, persists
// it, and publishes a per-recipient projection to every remote
// recipient. It returns the base64-encoded transaction hash.
func (m *Manager) Send(ctx context.Context, raw []byte, from *payload.PublicKey, to []payload.PublicKey, mode payload.PrivacyMode, execHash []byte, affectedB64 []string) (string, error) {
	start := time.Now()
	sender := m.resolveSender(from)

	recipients := dedupKeys(append(append([]payload.PublicKey{}, to...), append([]payload.PublicKey{sender}, m.enclave.ForwardingKeys()...)...))

	affected, err := m.buildAffected(ctx, affectedB64)
	if err != nil {
		m.observeSendFailure(mode)
		return "", err
	}

	if err := privacy.Validate(&payload.EncodedPayload{PrivacyMode: mode, RecipientKeys: recipients}, affected); err != nil {
		m.recordPrivacyViolation(err)
		m.observeSendFailure(mode)
		return "", err
	}

	encoded, err := m.enclave.EncryptPayload(raw, sender, recipients, mode, affected, execHash)
	if err != nil {
		m.observeSendFailure(mode)
		return "", fmt.Errorf("txmanager: encrypt: %w", err)
	}

	hash := payload.HashBytes(encoded.CipherText)
	if err := m.store.Save(ctx, &store.Record{Hash: hash, Payload: encoded}); err != nil {
		m.observeSendFailure(mode)
		return "", fmt.Errorf("txmanager: save: %w", err)
	}

	m.publishToRemotes(ctx, encoded, recipients)

	metrics.TransactionsSent.WithLabelValues(modeLabel(mode), "success").Inc()
	metrics.SendDuration.Observe(time.Since(start).Seconds())
	return hash.Base64(), nil
}

// SendSignedTransaction is Send for a plaintext already sealed ahead
// of time via Store: the plaintext comes from the raw store instead
// of the caller, and the sender is fixed to whoever called Store.
func (m *Manager) SendSignedTransaction(ctx context.Context, hash payload.Hash, to []payload.PublicKey, mode payload.PrivacyMode, execHash []byte, affectedB64 []string) (string, error) {
	start := time.Now()

	raw, err := m.rawStore.RetrieveByHash(ctx, hash)
	if err == store.ErrNotFound {
		m.observeSendFailure(mode)
		return "", ErrTransactionNotFound
	}
	if err != nil {
		m.observeSendFailure(mode)
		return "", fmt.Errorf("txmanager: retrieve raw: %w", err)
	}

	recipients := dedupKeys(append(append([]payload.PublicKey{}, to...), append([]payload.PublicKey{raw.Sender}, m.enclave.ForwardingKeys()...)...))

	affected, err := m.buildAffected(ctx, affectedB64)
	if err != nil {
		m.observeSendFailure(mode)
		return "", err
	}

	// The source validates recipient-set equality twice under PSV, once
	// via the general rule and once with the symmetric containsAll
	// phrasing; the two are equivalent, so a single Validate call covers
	// both (§9 design notes).
	if err := privacy.Validate(&payload.EncodedPayload{PrivacyMode: mode, RecipientKeys: recipients}, affected); err != nil {
		m.recordPrivacyViolation(err)
		m.observeSendFailure(mode)
		return "", err
	}

	seal := &enclave.RawSeal{
		EncryptedPayload: raw.EncryptedPayload,
		EncryptedKey:     raw.EncryptedKey,
		Nonce:            raw.Nonce,
		Sender:           raw.Sender,
	}
	encoded, err := m.enclave.EncryptPayloadFromRaw(seal, recipients, mode, affected, execHash)
	if err != nil {
		m.observeSendFailure(mode)
		return "", fmt.Errorf("txmanager: encrypt from raw: %w", err)
	}

	txHash := payload.HashBytes(encoded.CipherText)
	if err := m.store.Save(ctx, &store.Record{Hash: txHash, Payload: encoded}); err != nil {
		m.observeSendFailure(mode)
		return "", fmt.Errorf("txmanager: save: %w", err)
	}

	m.publishToRemotes(ctx, encoded, recipients)

	metrics.TransactionsSent.WithLabelValues(modeLabel(mode), "success").Inc()
	metrics.SendDuration.Observe(time.Since(start).Seconds())
	return txHash.Base64(), nil
}

// publishToRemotes fans out a per-recipient projection concurrently to
// every recipient this node does not hold a private key for, via
// errgroup. Publish failures are logged and swallowed per recipient;
// they never roll back the already-committed persistence, and one
// recipient's failure never blocks another's publish.
func (m *Manager) publishToRemotes(ctx context.Context, encoded *payload.EncodedPayload, recipients []payload.PublicKey) {
	local := make(map[string]struct{})
	for _, k := range m.enclave.PublicKeys() {
		local[k.Base64()] = struct{}{}
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, r := range recipients {
		r := r
		if _, isLocal := local[r.Base64()]; isLocal {
			continue
		}

		group.Go(func() error {
			m.publishOne(gctx, encoded, r)
			return nil
		})
	}
	// Every failure mode inside publishOne is log-and-continue, so Wait
	// only ever reports a genuine programmer error.
	_ = group.Wait()
}

func (m *Manager) publishOne(ctx context.Context, encoded *payload.EncodedPayload, r payload.PublicKey) {
	projection, err := payload.ForRecipient(encoded, r, true)
	if err != nil {
		m.log.Warn("skip publish: cannot project payload for recipient",
			logger.String("recipient", r.Base64()), logger.Error(err))
		metrics.RecipientPublishes.WithLabelValues("failure").Inc()
		return
	}

	if err := m.publisher.PublishPayload(ctx, projection, r); err != nil {
		m.log.Warn("publish failed",
			logger.String("recipient", r.Base64()), logger.Error(err))
		metrics.RecipientPublishes.WithLabelValues("failure").Inc()
		return
	}
	metrics.RecipientPublishes.WithLabelValues("success").Inc()
}

func (m *Manager) observeSendFailure(mode payload.PrivacyMode) {
	metrics.TransactionsSent.WithLabelValues(modeLabel(mode), "failure").Inc()
}

func (m *Manager) recordPrivacyViolation(err error) {
	var verr *privacy.ViolationError
	if errors.As(err, &verr) {
		metrics.PrivacyViolations.WithLabelValues(reasonLabel(verr.Reason)).Inc()
	}
}

func modeLabel(mode payload.PrivacyMode) string {
	if mode == payload.PSV {
		return "psv"
	}
	return "standard_private"
}

func reasonLabel(r privacy.Reason) string {
	if r == privacy.ReasonRecipientSetMismatch {
		return "recipient_set_mismatch"
	}
	return "mode_mismatch"
}
