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

// Package postgres implements store.Store on top of PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
)

// Config holds the PostgreSQL connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements store.Store against a PostgreSQL pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store and verifies connectivity.
func New(ctx context.Context, cfg *Config) (*Store, error) {
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
	return &Store{pool: pool}, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, rec *store.Record) error {
	payloadBytes, err := payload.Encode(rec.Payload)
	if err != nil {
		return fmt.Errorf("store/postgres: encode payload: %w", err)
	}

	const query = `
		INSERT INTO transactions (hash, payload)
		VALUES ($1, $2)
		ON CONFLICT (hash) DO UPDATE
		SET payload = EXCLUDED.payload
	`
	_, err = s.pool.Exec(ctx, query, rec.Hash.Bytes(), payloadBytes)
	if err != nil {
		return fmt.Errorf("store/postgres: save: %w", err)
	}
	return nil
}

// Delete implements store.Store. Deleting an absent hash is a no-op.
func (s *Store) Delete(ctx context.Context, hash payload.Hash) error {
	const query = `DELETE FROM transactions WHERE hash = $1`
	if _, err := s.pool.Exec(ctx, query, hash.Bytes()); err != nil {
		return fmt.Errorf("store/postgres: delete: %w", err)
	}
	return nil
}

// RetrieveByHash implements store.Store.
func (s *Store) RetrieveByHash(ctx context.Context, hash payload.Hash) (*store.Record, error) {
	const query = `
		SELECT hash, payload
		FROM transactions
		WHERE hash = $1
	`
	row := s.pool.QueryRow(ctx, query, hash.Bytes())
	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: retrieve: %w", err)
	}
	return rec, nil
}

// FindByHashes implements store.Store.
func (s *Store) FindByHashes(ctx context.Context, hashes []payload.Hash) ([]*store.Record, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	raw := make([][]byte, len(hashes))
	for i, h := range hashes {
		raw[i] = h.Bytes()
	}

	const query = `
		SELECT hash, payload
		FROM transactions
		WHERE hash = ANY($1)
	`
	rows, err := s.pool.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: find by hashes: %w", err)
	}
	defer rows.Close()

	var out []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store/postgres: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RetrieveTransactions implements store.Store.
func (s *Store) RetrieveTransactions(ctx context.Context, offset, limit int) ([]*store.Record, error) {
	const query = `
		SELECT hash, payload
		FROM transactions
		ORDER BY hash
		OFFSET $1 LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: retrieve transactions: %w", err)
	}
	defer rows.Close()

	var out []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store/postgres: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TransactionCount implements store.Store.
func (s *Store) TransactionCount(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM transactions`
	var count int64
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("store/postgres: count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.Record, error) {
	var (
		hashBytes    []byte
		payloadBytes []byte
	)
	if err := row.Scan(&hashBytes, &payloadBytes); err != nil {
		return nil, err
	}

	hash, err := hashFromBytes(hashBytes)
	if err != nil {
		return nil, err
	}
	p, err := payload.Decode(payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return &store.Record{Hash: hash, Payload: p}, nil
}

func hashFromBytes(b []byte) (payload.Hash, error) {
	if len(b) != 32 {
		return payload.Hash{}, fmt.Errorf("hash column: want 32 bytes, got %d", len(b))
	}
	var h payload.Hash
	copy(h[:], b)
	return h, nil
}
