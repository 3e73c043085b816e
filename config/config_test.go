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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, 5*time.Second, cfg.Publisher.DialTimeout)
	require.Equal(t, 100, cfg.Resend.FetchSize)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFromFileJSONFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"environment":"staging","node":{"listen_addr":":7777"}}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.Node.ListenAddr)
}

func TestSaveAndLoadRoundTripYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	cfg := &Config{Environment: "staging", Node: NodeConfig{ListenAddr: ":1234"}}
	require.NoError(t, SaveToFile(cfg, path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, ":1234", got.Node.ListenAddr)
}

func TestSaveAndLoadRoundTripJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.json")

	cfg := &Config{Environment: "staging", Node: NodeConfig{ListenAddr: ":1234"}}
	require.NoError(t, SaveToFile(cfg, path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, ":1234", got.Node.ListenAddr)
}

func TestLoadDotEnvMissingFileIsNotError(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvSetsProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PRIVAULT_TEST_DOTENV=hello\n"), 0o644))

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("PRIVAULT_TEST_DOTENV") })

	require.Equal(t, "hello", os.Getenv("PRIVAULT_TEST_DOTENV"))
}
