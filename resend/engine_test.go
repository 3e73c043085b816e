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

package resend

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/privault/enclave/sealed"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
	"github.com/sage-x-project/privault/store/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

type publishedMessage struct {
	recipient payload.PublicKey
	payload   *payload.EncodedPayload
}

func (f *fakePublisher) PublishPayload(ctx context.Context, p *payload.EncodedPayload, recipient payload.PublicKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{recipient: recipient, payload: p})
	return nil
}

func newEngineFixture(t *testing.T) (*Engine, store.Store, *sealed.Enclave, payload.PublicKey, *sealed.Enclave, payload.PublicKey, *fakePublisher) {
	t.Helper()

	s := memory.New()
	senderEnclave := sealed.New(sealed.MasterKeyFromPassphrase("sender-pass"), nil)
	senderPub, err := senderEnclave.GenerateKey()
	require.NoError(t, err)

	recipientEnclave := sealed.New(sealed.MasterKeyFromPassphrase("recipient-pass"), nil)
	recipientPub, err := recipientEnclave.GenerateKey()
	require.NoError(t, err)

	pub := &fakePublisher{}
	engine := New(s, senderEnclave, pub, nil)
	return engine, s, senderEnclave, senderPub, recipientEnclave, recipientPub, pub
}

func TestEngineAllSkipsLocalKeys(t *testing.T) {
	engine, _, _, senderPub, _, _, pub := newEngineFixture(t)
	require.NoError(t, engine.All(context.Background(), senderPub))
	require.Empty(t, pub.published)
}

func TestEngineAllPublishesToRecipient(t *testing.T) {
	engine, s, senderEnclave, senderPub, _, recipientPub, pub := newEngineFixture(t)
	ctx := context.Background()

	p, err := senderEnclave.EncryptPayload([]byte("hello"), senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	hash := payload.HashBytes(p.CipherText)
	require.NoError(t, s.Save(ctx, &store.Record{Hash: hash, Payload: p}))

	require.NoError(t, engine.All(ctx, recipientPub))

	require.Len(t, pub.published, 1)
	require.True(t, pub.published[0].recipient.Equal(recipientPub))
	require.Len(t, pub.published[0].payload.RecipientBoxes, 1)
}

func TestEngineAllSkipsTransactionsNotInvolvingPeer(t *testing.T) {
	engine, s, senderEnclave, senderPub, _, recipientPub, pub := newEngineFixture(t)
	ctx := context.Background()

	other := sealed.New(sealed.MasterKeyFromPassphrase("other-pass"), nil)
	otherPub, err := other.GenerateKey()
	require.NoError(t, err)

	p, err := senderEnclave.EncryptPayload([]byte("hello"), senderPub, []payload.PublicKey{otherPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	hash := payload.HashBytes(p.CipherText)
	require.NoError(t, s.Save(ctx, &store.Record{Hash: hash, Payload: p}))

	require.NoError(t, engine.All(ctx, recipientPub))
	require.Empty(t, pub.published)
}

func TestEngineIndividualReturnsEncodedProjection(t *testing.T) {
	engine, s, senderEnclave, senderPub, _, recipientPub, _ := newEngineFixture(t)
	ctx := context.Background()

	p, err := senderEnclave.EncryptPayload([]byte("hello"), senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	hash := payload.HashBytes(p.CipherText)
	require.NoError(t, s.Save(ctx, &store.Record{Hash: hash, Payload: p}))

	encoded, err := engine.Individual(ctx, recipientPub, hash)
	require.NoError(t, err)

	decoded, err := payload.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.RecipientBoxes, 1)
}

func TestEngineIndividualNotFound(t *testing.T) {
	engine, _, _, _, _, recipientPub, _ := newEngineFixture(t)
	_, err := engine.Individual(context.Background(), recipientPub, payload.Hash{1})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestAcceptOwnMessageCreatesNewRecord(t *testing.T) {
	engine, s, senderEnclave, senderPub, _, recipientPub, _ := newEngineFixture(t)
	ctx := context.Background()

	p, err := senderEnclave.EncryptPayload([]byte("hello"), senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)

	require.NoError(t, engine.AcceptOwnMessage(ctx, p))

	hash := payload.HashBytes(p.CipherText)
	got, err := s.RetrieveByHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, p.RecipientKeys, got.Payload.RecipientKeys)
}

func TestAcceptOwnMessageMergesRecipients(t *testing.T) {
	engine, s, senderEnclave, senderPub, _, recipientPub, _ := newEngineFixture(t)
	ctx := context.Background()

	other := sealed.New(sealed.MasterKeyFromPassphrase("other-pass"), nil)
	otherPub, err := other.GenerateKey()
	require.NoError(t, err)

	p, err := senderEnclave.EncryptPayload([]byte("hello"), senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	hash := payload.HashBytes(p.CipherText)
	require.NoError(t, s.Save(ctx, &store.Record{Hash: hash, Payload: p}))

	incoming, err := senderEnclave.EncryptPayload([]byte("hello"), senderPub, []payload.PublicKey{otherPub}, payload.StandardPrivate, nil, nil)
	require.NoError(t, err)
	// Force the same content hash as the stored record so the merge path is exercised.
	incoming.CipherText = p.CipherText

	require.NoError(t, engine.AcceptOwnMessage(ctx, incoming))

	merged, err := s.RetrieveByHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, merged.Payload.RecipientKeys, 2)
}
