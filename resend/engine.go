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

// Package resend implements the catch-up protocol: a paged scan over
// the store that republishes every transaction a peer is party to,
// plus the single-hash variant a peer can request synchronously. It
// also implements the resend manager's acceptOwnMessage contract,
// merging a returning copy of a self-originated message with whatever
// this node already has on file for it.
package resend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sage-x-project/privault/enclave"
	"github.com/sage-x-project/privault/internal/logger"
	"github.com/sage-x-project/privault/internal/metrics"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/publisher"
	"github.com/sage-x-project/privault/store"
)

// defaultFetchSize is resendFetchSize: the page size for the store
// scan. Not load-sensitive, per the design notes.
const defaultFetchSize = 100

// Engine is the resend engine and, via AcceptOwnMessage, the resend
// manager referenced by §4.5.
type Engine struct {
	store     store.Store
	enclave   enclave.Enclave
	publisher publisher.Publisher
	log       logger.Logger
	fetchSize int
}

// New constructs an Engine with the default page size.
func New(s store.Store, e enclave.Enclave, p publisher.Publisher, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Engine{store: s, enclave: e, publisher: p, log: log, fetchSize: defaultFetchSize}
}

// WithFetchSize overrides the page size used by All. Returns the
// receiver for chaining at construction time.
func (r *Engine) WithFetchSize(n int) *Engine {
	if n > 0 {
		r.fetchSize = n
	}
	return r
}

// All streams the store in pages, and for every transaction publicKey
// is party to, publishes the appropriate projection to publicKey. It
// never sends to one of this node's own keys. Paging is not
// restartable: every call starts again from offset 0, and makes no
// atomicity guarantee against concurrent writers.
func (r *Engine) All(ctx context.Context, publicKey payload.PublicKey) error {
	start := time.Now()
	defer func() { metrics.ResendDuration.Observe(time.Since(start).Seconds()) }()

	if r.isLocal(publicKey) {
		return nil
	}

	for offset := 0; ; offset += r.fetchSize {
		count, err := r.store.TransactionCount(ctx)
		if err != nil {
			return fmt.Errorf("resend: count: %w", err)
		}
		if int64(offset) >= count {
			return nil
		}

		records, err := r.store.RetrieveTransactions(ctx, offset, r.fetchSize)
		if err != nil {
			return fmt.Errorf("resend: page at offset %d: %w", offset, err)
		}
		metrics.ResendPages.Inc()

		group, gctx := errgroup.WithContext(ctx)
		for _, rec := range records {
			rec := rec
			group.Go(func() error {
				r.resendOne(gctx, rec, publicKey)
				return nil
			})
		}
		// Publish errors are logged inside resendOne and never returned,
		// so Wait only ever reports a genuine programmer error.
		_ = group.Wait()
	}
}

// resendOne projects and publishes a single stored record to
// publicKey, if publicKey is a party to it. Every failure mode here is
// log-and-skip: a corrupt or partial record must not abort the rest of
// the resend run.
func (r *Engine) resendOne(ctx context.Context, rec *store.Record, publicKey payload.PublicKey) {
	p := rec.Payload
	if !involves(p, publicKey) {
		return
	}

	outgoing, err := r.project(p, publicKey)
	if err != nil {
		if err == errNoLocalKey {
			metrics.ResendSkippedMissingKey.Inc()
			r.log.Info("resend: skipping transaction, no local key decrypts it",
				logger.String("hash", rec.Hash.Base64()))
			return
		}
		r.log.Warn("resend: skipping transaction, cannot project payload",
			logger.String("hash", rec.Hash.Base64()), logger.Error(err))
		return
	}

	if err := r.publisher.PublishPayload(ctx, outgoing, publicKey); err != nil {
		r.log.Warn("resend: publish failed",
			logger.String("recipient", publicKey.Base64()), logger.Error(err))
	}
}

// Individual resends one transaction synchronously, returning its
// encoded projection for the caller to hand to the peer directly
// rather than publishing it.
func (r *Engine) Individual(ctx context.Context, publicKey payload.PublicKey, hash payload.Hash) ([]byte, error) {
	rec, err := r.store.RetrieveByHash(ctx, hash)
	if err == store.ErrNotFound {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resend: retrieve: %w", err)
	}

	outgoing, err := r.project(rec.Payload, publicKey)
	if err == errNoLocalKey {
		return nil, ErrRecipientKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resend: project: %w", err)
	}

	encoded, err := payload.Encode(outgoing)
	if err != nil {
		return nil, fmt.Errorf("resend: encode: %w", err)
	}
	return encoded, nil
}

// project builds the outgoing projection of p for publicKey:
//   - publicKey is the sender with a labeled recipient list: send unchanged.
//   - publicKey is the sender but the recipient list was stripped: key-search
//     our own keys to discover which one decrypts it, and attach that key.
//   - otherwise publicKey is one of the recipients: project down to its box.
func (r *Engine) project(p *payload.EncodedPayload, publicKey payload.PublicKey) (*payload.EncodedPayload, error) {
	if p.SenderKey.Equal(publicKey) {
		if len(p.RecipientKeys) > 0 {
			return p, nil
		}
		k, err := r.keySearchRecipient(p)
		if err != nil {
			return nil, err
		}
		return payload.WithRecipient(p, k), nil
	}
	return payload.ForRecipient(p, publicKey, true)
}

func (r *Engine) keySearchRecipient(p *payload.EncodedPayload) (payload.PublicKey, error) {
	for _, k := range r.enclave.PublicKeys() {
		if _, err := r.enclave.UnencryptTransaction(p, k); err == nil {
			return k, nil
		}
	}
	return nil, errNoLocalKey
}

func (r *Engine) isLocal(k payload.PublicKey) bool {
	for _, lk := range r.enclave.PublicKeys() {
		if lk.Equal(k) {
			return true
		}
	}
	return false
}

func involves(p *payload.EncodedPayload, publicKey payload.PublicKey) bool {
	if p.SenderKey.Equal(publicKey) {
		return true
	}
	for _, k := range p.RecipientKeys {
		if k.Equal(publicKey) {
			return true
		}
	}
	return false
}

// AcceptOwnMessage implements the resend manager's contract (§4.5): it
// merges an incoming copy of a self-originated message with whatever
// is already stored for the same hash, unioning recipient boxes by
// key so a previously partial record gains the recipients it was
// missing.
func (r *Engine) AcceptOwnMessage(ctx context.Context, incoming *payload.EncodedPayload) error {
	hash := payload.HashBytes(incoming.CipherText)

	existing, err := r.store.RetrieveByHash(ctx, hash)
	if err == store.ErrNotFound {
		return r.store.Save(ctx, &store.Record{Hash: hash, Payload: incoming})
	}
	if err != nil {
		return fmt.Errorf("resend: retrieve for merge: %w", err)
	}

	merged := mergeRecipients(existing.Payload, incoming)
	return r.store.Save(ctx, &store.Record{Hash: hash, Payload: merged})
}

// mergeRecipients returns a copy of existing with any recipient key
// from incoming that existing does not already have, along with its
// matching box, appended in incoming's order.
func mergeRecipients(existing, incoming *payload.EncodedPayload) *payload.EncodedPayload {
	out := *existing
	if len(incoming.RecipientKeys) == 0 {
		return &out
	}

	have := make(map[string]struct{}, len(out.RecipientKeys))
	for _, k := range out.RecipientKeys {
		have[k.Base64()] = struct{}{}
	}

	boxes := append([][]byte(nil), out.RecipientBoxes...)
	keys := append([]payload.PublicKey(nil), out.RecipientKeys...)

	for i, k := range incoming.RecipientKeys {
		if _, exists := have[k.Base64()]; exists {
			continue
		}
		if i >= len(incoming.RecipientBoxes) {
			continue
		}
		have[k.Base64()] = struct{}{}
		keys = append(keys, k)
		boxes = append(boxes, incoming.RecipientBoxes[i])
	}

	out.RecipientKeys = keys
	out.RecipientBoxes = boxes
	return &out
}
