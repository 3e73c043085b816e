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

// Package memory implements store.Store in process memory, for tests
// and single-node deployments.
package memory

import (
	"context"
	"sync"

	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
)

// Store is an in-memory, mutex-guarded implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	records map[payload.Hash]*store.Record
	// order tracks insertion order so RetrieveTransactions pages
	// deterministically, matching what a real sequence/cursor column
	// would give a durable backend.
	order []payload.Hash
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[payload.Hash]*store.Record),
	}
}

func copyRecord(rec *store.Record) *store.Record {
	out := *rec
	return &out
}

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Hash]; !exists {
		s.order = append(s.order, rec.Hash)
	}
	s.records[rec.Hash] = copyRecord(rec)
	return nil
}

// Delete implements store.Store. Deleting an absent hash is a no-op.
func (s *Store) Delete(ctx context.Context, hash payload.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[hash]; !exists {
		return nil
	}
	delete(s.records, hash)
	for i, h := range s.order {
		if h == hash {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// RetrieveByHash implements store.Store.
func (s *Store) RetrieveByHash(ctx context.Context, hash payload.Hash) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[hash]
	if !exists {
		return nil, store.ErrNotFound
	}
	return copyRecord(rec), nil
}

// FindByHashes implements store.Store.
func (s *Store) FindByHashes(ctx context.Context, hashes []payload.Hash) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Record, 0, len(hashes))
	for _, h := range hashes {
		if rec, exists := s.records[h]; exists {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

// RetrieveTransactions implements store.Store.
func (s *Store) RetrieveTransactions(ctx context.Context, offset, limit int) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.order) {
		return []*store.Record{}, nil
	}
	end := offset + limit
	if end > len(s.order) || limit <= 0 {
		end = len(s.order)
	}

	out := make([]*store.Record, 0, end-offset)
	for _, h := range s.order[offset:end] {
		out = append(out, copyRecord(s.records[h]))
	}
	return out, nil
}

// TransactionCount implements store.Store.
func (s *Store) TransactionCount(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.order)), nil
}

// Close implements store.Store. No-op for the memory backend.
func (s *Store) Close() error { return nil }
