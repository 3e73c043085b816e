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

// Integration tests against a real PostgreSQL instance. They are
// skipped unless PRIVAULT_TEST_POSTGRES_HOST is set, the same way the
// blockchain- and OIDC-backed tests elsewhere in this module skip
// without live infrastructure.
package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/store"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	host := os.Getenv("PRIVAULT_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("PRIVAULT_TEST_POSTGRES_HOST not set, skipping postgres integration test")
	}
	port := 5432
	if v := os.Getenv("PRIVAULT_TEST_POSTGRES_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}
	return &Config{
		Host:     host,
		Port:     port,
		User:     envOrDefault("PRIVAULT_TEST_POSTGRES_USER", "privault"),
		Password: os.Getenv("PRIVAULT_TEST_POSTGRES_PASSWORD"),
		Database: envOrDefault("PRIVAULT_TEST_POSTGRES_DATABASE", "privault_test"),
		SSLMode:  "disable",
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestStoreSaveRetrieveDelete(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	s, err := New(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	rec := &store.Record{
		Hash: payload.HashBytes([]byte("postgres integration test")),
		Payload: &payload.EncodedPayload{
			SenderKey:      payload.PublicKey{1, 2, 3},
			CipherText:     []byte("ciphertext"),
			RecipientBoxes: [][]byte{[]byte("box")},
		},
	}
	require.NoError(t, s.Save(ctx, rec))
	defer s.Delete(ctx, rec.Hash)

	got, err := s.RetrieveByHash(ctx, rec.Hash)
	require.NoError(t, err)
	require.Equal(t, rec.Payload.SenderKey, got.Payload.SenderKey)

	require.NoError(t, s.Delete(ctx, rec.Hash))
	_, err = s.RetrieveByHash(ctx, rec.Hash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRawStoreSaveRetrieve(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	rs, err := NewRawStore(ctx, cfg)
	require.NoError(t, err)
	defer rs.Close()

	rec := &store.RawRecord{
		Hash:             payload.HashBytes([]byte("raw postgres integration test")),
		EncryptedPayload: []byte("enc"),
		EncryptedKey:     []byte("key"),
		Nonce:            []byte("nonce"),
		Sender:           payload.PublicKey{9},
	}
	require.NoError(t, rs.Save(ctx, rec))

	got, err := rs.RetrieveByHash(ctx, rec.Hash)
	require.NoError(t, err)
	require.Equal(t, rec.EncryptedPayload, got.EncryptedPayload)
}
