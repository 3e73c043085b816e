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

// Package enclave defines the trust-boundary contract the transaction
// manager depends on: encrypt/decrypt, key inventory, and security-hash
// validation. The enclave is opaque to the core — only its contract
// lives here, the concrete implementation is in enclave/sealed.
package enclave

import (
	"errors"

	"github.com/sage-x-project/privault/payload"
)

// ErrDecryptFailed is EnclaveFailure: any enclave-level error while
// attempting to decrypt with a specific recipient key.
var ErrDecryptFailed = errors.New("enclave: decryption failed")

// RawSeal is the sender's pre-distribution encryption of a plaintext,
// produced by EncryptRawPayload ahead of a later signed send.
type RawSeal struct {
	EncryptedPayload []byte
	EncryptedKey     []byte
	Nonce            []byte
	Sender           payload.PublicKey
}

// Enclave is the pure functional contract the core depends on for all
// cryptographic operations. Implementations hold private key material;
// the core never touches key bytes directly.
type Enclave interface {
	// DefaultPublicKey returns this node's default identity key.
	DefaultPublicKey() payload.PublicKey

	// PublicKeys returns the set of keys this node holds private
	// material for.
	PublicKeys() []payload.PublicKey

	// ForwardingKeys returns keys that are always added as implicit
	// recipients (e.g. a regulator or audit node).
	ForwardingKeys() []payload.PublicKey

	// EncryptPayload encrypts raw for sender, wrapping a content key to
	// each of recipients, tagging the result with mode, affected, and
	// execHash.
	EncryptPayload(raw []byte, sender payload.PublicKey, recipients []payload.PublicKey, mode payload.PrivacyMode, affected []payload.AffectedTransaction, execHash []byte) (*payload.EncodedPayload, error)

	// EncryptPayloadFromRaw encrypts a previously-sealed raw transaction
	// for a fresh recipient set, mode, affected set, and execHash.
	EncryptPayloadFromRaw(raw *RawSeal, recipients []payload.PublicKey, mode payload.PrivacyMode, affected []payload.AffectedTransaction, execHash []byte) (*payload.EncodedPayload, error)

	// EncryptRawPayload seals raw for later signed distribution by sender.
	EncryptRawPayload(raw []byte, sender payload.PublicKey) (*RawSeal, error)

	// UnencryptTransaction decrypts payload for recipient. It fails with
	// ErrDecryptFailed when recipient cannot decrypt (wrong key, or key
	// not held locally).
	UnencryptTransaction(p *payload.EncodedPayload, recipient payload.PublicKey) ([]byte, error)

	// UnencryptRawPayload decrypts a previously sealed raw transaction.
	UnencryptRawPayload(raw *RawSeal) ([]byte, error)

	// FindInvalidSecurityHashes returns the subset of p's affected
	// transaction hashes whose claimed security hash disagrees with
	// what the enclave recomputes from the corresponding affected
	// payload in affected.
	FindInvalidSecurityHashes(p *payload.EncodedPayload, affected []payload.AffectedTransaction) map[payload.Hash]struct{}
}
