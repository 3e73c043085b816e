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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
)

// RawStore implements store.RawStore against a PostgreSQL pool.
type RawStore struct {
	pool *pgxpool.Pool
}

// NewRawStore creates a RawStore and verifies connectivity.
func NewRawStore(ctx context.Context, cfg *Config) (*RawStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/postgres: ping: %w", err)
	}
	return &RawStore{pool: pool}, nil
}

// Close implements store.RawStore.
func (s *RawStore) Close() error {
	s.pool.Close()
	return nil
}

// Save implements store.RawStore.
func (s *RawStore) Save(ctx context.Context, rec *store.RawRecord) error {
	const query = `
		INSERT INTO raw_transactions (hash, encrypted_payload, encrypted_key, nonce, sender)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO UPDATE
		SET encrypted_payload = EXCLUDED.encrypted_payload,
		    encrypted_key     = EXCLUDED.encrypted_key,
		    nonce             = EXCLUDED.nonce,
		    sender            = EXCLUDED.sender
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Hash.Bytes(), rec.EncryptedPayload, rec.EncryptedKey, rec.Nonce, []byte(rec.Sender),
	)
	if err != nil {
		return fmt.Errorf("store/postgres: save raw: %w", err)
	}
	return nil
}

// RetrieveByHash implements store.RawStore.
func (s *RawStore) RetrieveByHash(ctx context.Context, hash payload.Hash) (*store.RawRecord, error) {
	const query = `
		SELECT hash, encrypted_payload, encrypted_key, nonce, sender
		FROM raw_transactions
		WHERE hash = $1
	`
	var (
		hashBytes []byte
		encPay    []byte
		encKey    []byte
		nonce     []byte
		sender    []byte
	)
	err := s.pool.QueryRow(ctx, query, hash.Bytes()).Scan(&hashBytes, &encPay, &encKey, &nonce, &sender)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: retrieve raw: %w", err)
	}

	h, err := hashFromBytes(hashBytes)
	if err != nil {
		return nil, err
	}
	return &store.RawRecord{
		Hash:             h,
		EncryptedPayload: encPay,
		EncryptedKey:     encKey,
		Nonce:            nonce,
		Sender:           payload.PublicKey(sender),
	}, nil
}
