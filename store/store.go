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

// Package store defines the one shared mutable resource the rest of
// the module depends on: content-addressed persistence for encoded
// payloads, keyed by their transaction hash.
package store

import (
	"context"
	"errors"

	"github.com/sage-x-project/privault/payload"
)

// ErrNotFound is TransactionNotFound: no record exists for the given hash.
var ErrNotFound = errors.New("store: transaction not found")

// Record is the persisted form of an EncryptedTransaction: hash is the
// primary key, derived as H(payload.CipherText). isSender and
// getParticipants are not stored redundantly here; the manager derives
// them from Payload at read time.
type Record struct {
	Hash    payload.Hash
	Payload *payload.EncodedPayload
}

// Store is the single shared mutable resource in the system. All of
// its methods must be safe for concurrent use; callers never assume an
// external lock.
type Store interface {
	// Save persists rec, overwriting any existing record under the same
	// hash.
	Save(ctx context.Context, rec *Record) error

	// Delete removes the record for hash. Deleting a hash that does not
	// exist is a no-op, not an error (Open Question: undefined in the
	// source design, resolved here as idempotent deletion).
	Delete(ctx context.Context, hash payload.Hash) error

	// RetrieveByHash returns the record for hash, or ErrNotFound.
	RetrieveByHash(ctx context.Context, hash payload.Hash) (*Record, error)

	// FindByHashes returns whichever of hashes have records, in no
	// particular order. Missing hashes are silently omitted.
	FindByHashes(ctx context.Context, hashes []payload.Hash) ([]*Record, error)

	// RetrieveTransactions pages through every stored record in a
	// stable order, for use by the resend scan.
	RetrieveTransactions(ctx context.Context, offset, limit int) ([]*Record, error)

	// TransactionCount returns the total number of stored records.
	TransactionCount(ctx context.Context) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// RawRecord is the persisted form of an EncryptedRawTransaction: the
// sender's pre-distribution encryption of a plaintext, ahead of a
// later signed send.
type RawRecord struct {
	Hash             payload.Hash
	EncryptedPayload []byte
	EncryptedKey     []byte
	Nonce            []byte
	Sender           payload.PublicKey
}

// RawStore persists RawRecords. Raw transactions are created by store
// and consumed at most once by sendSignedTransaction; they are never
// deleted by the manager itself, so the contract needs only save and
// retrieve.
type RawStore interface {
	Save(ctx context.Context, rec *RawRecord) error
	RetrieveByHash(ctx context.Context, hash payload.Hash) (*RawRecord, error)
	Close() error
}
