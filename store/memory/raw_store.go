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

package memory

import (
	"context"
	"sync"

	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
)

// RawStore is an in-memory, mutex-guarded implementation of store.RawStore.
type RawStore struct {
	mu      sync.RWMutex
	records map[payload.Hash]*store.RawRecord
}

// NewRawStore creates an empty in-memory raw store.
func NewRawStore() *RawStore {
	return &RawStore{records: make(map[payload.Hash]*store.RawRecord)}
}

// Save implements store.RawStore.
func (s *RawStore) Save(ctx context.Context, rec *store.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *rec
	s.records[rec.Hash] = &out
	return nil
}

// RetrieveByHash implements store.RawStore.
func (s *RawStore) RetrieveByHash(ctx context.Context, hash payload.Hash) (*store.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, exists := s.records[hash]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// Close implements store.RawStore. No-op for the memory backend.
func (s *RawStore) Close() error { return nil }
