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

package main

import (
	"context"
	"crypto/ecdh"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sage-x-project/privault/config"
	"github.com/sage-x-project/privault/enclave/sealed"
	"github.com/sage-x-project/privault/internal/logger"
	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/publisher/wsclient"
	"github.com/sage-x-project/privault/resend"
	"github.com/sage-x-project/privault/store"
	"github.com/sage-x-project/privault/store/memory"
	"github.com/sage-x-project/privault/store/postgres"
	"github.com/sage-x-project/privault/txmanager"
)

// node bundles the collaborators a CLI command needs, built fresh from
// config for each invocation the way sage-did's subcommands build
// their own registry client from flags rather than sharing one.
type node struct {
	cfg       *config.Config
	store     store.Store
	rawStore  store.RawStore
	enclave   *sealed.Enclave
	publisher *wsclient.Client
	resend    *resend.Engine
	manager   *txmanager.Manager
	log       logger.Logger
}

func buildNode(ctx context.Context) (*node, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("privaultd: load config: %w", err)
	}

	log := logger.NewDefaultLogger()

	s, rs, err := buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	enc, err := buildEnclave(cfg)
	if err != nil {
		return nil, err
	}

	pub := wsclient.New(peerMap(cfg.Publisher.Peers)).
		WithTimeouts(cfg.Publisher.DialTimeout, cfg.Publisher.WriteTimeout, cfg.Publisher.ReadTimeout)

	engine := resend.New(s, enc, pub, log).WithFetchSize(cfg.Resend.FetchSize)
	mgr := txmanager.New(s, rs, enc, pub, engine, log)

	return &node{cfg: cfg, store: s, rawStore: rs, enclave: enc, publisher: pub, resend: engine, manager: mgr, log: log}, nil
}

func buildStores(ctx context.Context, cfg *config.Config) (store.Store, store.RawStore, error) {
	switch cfg.Store.Backend {
	case "postgres":
		pgCfg := &postgres.Config{
			Host:     cfg.Store.Postgres.Host,
			Port:     cfg.Store.Postgres.Port,
			User:     cfg.Store.Postgres.User,
			Password: cfg.Store.Postgres.Password,
			Database: cfg.Store.Postgres.Database,
			SSLMode:  cfg.Store.Postgres.SSLMode,
		}
		s, err := postgres.New(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("privaultd: connect postgres store: %w", err)
		}
		rs, err := postgres.NewRawStore(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("privaultd: connect postgres raw store: %w", err)
		}
		return s, rs, nil
	case "memory", "":
		return memory.New(), memory.NewRawStore(), nil
	default:
		return nil, nil, fmt.Errorf("privaultd: unknown store backend %q", cfg.Store.Backend)
	}
}

// buildEnclave loads this node's identity key from
// <config dir>/node.key (hex-encoded X25519 scalar), generating and
// persisting a fresh one on first run. The master key that wraps raw
// transactions comes from the passphrase in the environment variable
// named by Enclave.PassphraseEnv.
func buildEnclave(cfg *config.Config) (*sealed.Enclave, error) {
	passphrase := os.Getenv(cfg.Enclave.PassphraseEnv)
	masterKey := sealed.MasterKeyFromPassphrase(passphrase)

	forwarding := make([]payload.PublicKey, 0, len(cfg.Enclave.ForwardingKeysB64))
	for _, b64 := range cfg.Enclave.ForwardingKeysB64 {
		k, err := payload.PublicKeyFromBase64(b64)
		if err != nil {
			return nil, fmt.Errorf("privaultd: forwarding key: %w", err)
		}
		forwarding = append(forwarding, k)
	}

	enc := sealed.New(masterKey, forwarding)

	keyDir := "config"
	if configPath != "" {
		keyDir = filepath.Dir(configPath)
	}
	keyPath := filepath.Join(keyDir, "node.key")
	priv, err := loadNodeKey(keyPath)
	if err != nil {
		return nil, err
	}
	if priv != nil {
		enc.ImportKey(priv)
		return enc, nil
	}

	pub, err := enc.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("privaultd: generate node key: %w", err)
	}
	raw, err := enc.ExportKey(pub)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("privaultd: create key dir: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(raw)), 0o600); err != nil {
		return nil, fmt.Errorf("privaultd: persist node key: %w", err)
	}
	return enc, nil
}

func loadNodeKey(path string) (*ecdh.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("privaultd: read node key: %w", err)
	}
	raw, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("privaultd: decode node key: %w", err)
	}
	priv, err := ecdh.X25519().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("privaultd: parse node key: %w", err)
	}
	return priv, nil
}

type staticPeerMap map[string]string

func (m staticPeerMap) PeerURL(recipient payload.PublicKey) (string, bool) {
	url, ok := m[recipient.Base64()]
	return url, ok
}

func peerMap(peers map[string]string) staticPeerMap {
	return staticPeerMap(peers)
}

func (n *node) close() {
	if c, ok := n.store.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	if c, ok := n.rawStore.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
