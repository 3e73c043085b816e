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

// Package payload defines the on-wire and at-rest transaction payload,
// its identifiers, and the codec used to move it between the two forms.
package payload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKey is an opaque fixed-length key. Equality is by bytes.
type PublicKey []byte

// Equal reports whether two public keys hold the same bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k, other)
}

// Base64 returns the standard padded base64 encoding of the key.
func (k PublicKey) Base64() string {
	return base64.StdEncoding.EncodeToString(k)
}

// PublicKeyFromBase64 decodes a standard padded base64 string into a PublicKey.
func PublicKeyFromBase64(s string) (PublicKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return PublicKey(b), nil
}

// Nonce is opaque, single-use bytes associated with an AEAD operation.
type Nonce []byte

// Hash is a fixed 32-byte digest used for both transaction hashes and
// security hashes. Two hashes are equal iff their bytes are equal.
type Hash [32]byte

// HashBytes derives a Hash by digesting data with the module-wide hash
// function (Keccak-256, the same primitive the teacher's chain-facing
// code already depends on via go-ethereum).
func HashBytes(data []byte) Hash {
	return Hash(crypto.Keccak256Hash(data))
}

// Bytes returns the 32 underlying bytes.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Base64 returns the standard padded base64 encoding of the hash.
func (h Hash) Base64() string {
	return base64.StdEncoding.EncodeToString(h[:])
}

// IsZero reports whether the hash is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromBase64 decodes a standard padded base64 string into a Hash.
func HashFromBase64(s string) (Hash, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != 32 {
		return Hash{}, fmt.Errorf("decode hash: want 32 bytes, got %d", len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// PrivacyMode is a closed enumeration of privacy policies.
type PrivacyMode uint8

const (
	// StandardPrivate is peer-to-peer encryption with no cross-transaction
	// invariants.
	StandardPrivate PrivacyMode = 0
	// PSV is Private State Validation: adds recipient-set equality with
	// all affected transactions and requires a non-empty ExecHash.
	PSV PrivacyMode = 1
)

// Flag returns the wire flag for the privacy mode.
func (m PrivacyMode) Flag() byte { return byte(m) }

// ModeFromFlag resolves a wire flag to a PrivacyMode.
func ModeFromFlag(flag byte) (PrivacyMode, error) {
	switch PrivacyMode(flag) {
	case StandardPrivate, PSV:
		return PrivacyMode(flag), nil
	default:
		return 0, fmt.Errorf("%w: flag %d", ErrUnknownPrivacyMode, flag)
	}
}

func (m PrivacyMode) String() string {
	switch m {
	case StandardPrivate:
		return "STANDARD_PRIVATE"
	case PSV:
		return "PRIVATE_STATE_VALIDATION"
	default:
		return fmt.Sprintf("PrivacyMode(%d)", byte(m))
	}
}

// ErrUnknownPrivacyMode is returned by ModeFromFlag for an unrecognized flag.
var ErrUnknownPrivacyMode = errors.New("payload: unknown privacy mode")

// AffectedEntry pairs an affected transaction's hash with the security
// hash the sender claims for it. Stored as an ordered slice (not a map)
// so that iteration order — and therefore error reporting — stays
// deterministic, per the "insertion order" requirement in the design notes.
type AffectedEntry struct {
	Hash         Hash
	SecurityHash []byte
}

// EncodedPayload is the on-wire and at-rest representation of one
// private transaction.
type EncodedPayload struct {
	SenderKey                    PublicKey
	CipherText                   []byte
	CipherTextNonce              Nonce
	RecipientBoxes               [][]byte
	RecipientNonce               Nonce
	RecipientKeys                []PublicKey
	PrivacyMode                  PrivacyMode
	AffectedContractTransactions []AffectedEntry
	ExecHash                     []byte
}

// Validate checks the structural invariants from the data model: at
// least one recipient box, positional correspondence between boxes and
// keys when keys are present, and ExecHash present iff PSV.
func (p *EncodedPayload) Validate() error {
	if len(p.RecipientBoxes) < 1 {
		return errors.New("payload: at least one recipient box is required")
	}
	if len(p.RecipientKeys) > 0 && len(p.RecipientKeys) != len(p.RecipientBoxes) {
		return fmt.Errorf("payload: %d recipient keys but %d recipient boxes", len(p.RecipientKeys), len(p.RecipientBoxes))
	}
	if p.PrivacyMode == PSV && len(p.ExecHash) == 0 {
		return errors.New("payload: PSV requires a non-empty exec hash")
	}
	if p.PrivacyMode != PSV && len(p.ExecHash) != 0 {
		return errors.New("payload: exec hash is only valid under PSV")
	}
	return nil
}

// AffectedHashes returns the affected transaction hashes in their
// original, deterministic order.
func (p *EncodedPayload) AffectedHashes() []Hash {
	hashes := make([]Hash, len(p.AffectedContractTransactions))
	for i, e := range p.AffectedContractTransactions {
		hashes[i] = e.Hash
	}
	return hashes
}

// SecurityHashFor returns the claimed security hash for an affected
// transaction hash, and whether it was present.
func (p *EncodedPayload) SecurityHashFor(h Hash) ([]byte, bool) {
	for _, e := range p.AffectedContractTransactions {
		if e.Hash == h {
			return e.SecurityHash, true
		}
	}
	return nil, false
}

// RemoveAffected returns a shallow copy of the payload with the given
// affected hashes removed, preserving the order of the remainder.
func (p *EncodedPayload) RemoveAffected(remove map[Hash]struct{}) *EncodedPayload {
	out := *p
	if len(remove) == 0 {
		return &out
	}
	kept := make([]AffectedEntry, 0, len(p.AffectedContractTransactions))
	for _, e := range p.AffectedContractTransactions {
		if _, drop := remove[e.Hash]; !drop {
			kept = append(kept, e)
		}
	}
	out.AffectedContractTransactions = kept
	return &out
}

// RecipientIndex returns the position of recipient in RecipientKeys, or
// -1 if absent.
func (p *EncodedPayload) RecipientIndex(recipient PublicKey) int {
	for i, k := range p.RecipientKeys {
		if k.Equal(recipient) {
			return i
		}
	}
	return -1
}

// AffectedTransaction is a resolved (hash, payload) pair loaded from the
// store while validating a new transaction.
type AffectedTransaction struct {
	Hash    Hash
	Payload *EncodedPayload
}
