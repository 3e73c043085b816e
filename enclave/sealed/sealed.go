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

// Package sealed is the one concrete enclave.Enclave implementation:
// X25519 key agreement, HPKE-wrapped per-recipient content keys, and
// AES-256-GCM for the bulk ciphertext. Ported from the X25519 envelope
// encryption in the teacher's crypto/keys package.
package sealed

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"github.com/cloudflare/circl/hpke"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sage-x-project/privault/enclave"
	"github.com/sage-x-project/privault/payload"
)

const (
	contentKeySize = 32
	gcmNonceSize   = 12
	recipientInfo  = "privault-recipient-box/v1"
)

var hpkeSuite = hpke.NewSuite(
	hpke.KEM_X25519_HKDF_SHA256,
	hpke.KDF_HKDF_SHA256,
	hpke.AEAD_ChaCha20Poly1305,
)

// Enclave holds local X25519 key material and the master key used to
// wrap content keys for raw (not-yet-distributed) transactions.
type Enclave struct {
	mu         sync.RWMutex
	keys       map[string]*ecdh.PrivateKey
	defaultKey payload.PublicKey
	forwarding []payload.PublicKey
	masterKey  [32]byte
}

// New creates an enclave with no key material. Call GenerateKey (or
// ImportKey) at least once before use; the first key becomes the
// default identity.
func New(masterKey [32]byte, forwarding []payload.PublicKey) *Enclave {
	return &Enclave{
		keys:       make(map[string]*ecdh.PrivateKey),
		forwarding: append([]payload.PublicKey(nil), forwarding...),
		masterKey:  masterKey,
	}
}

// GenerateKey creates and stores a fresh X25519 key pair, returning its
// public key. The first generated key becomes the default identity.
func (e *Enclave) GenerateKey() (payload.PublicKey, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: generate key: %w", err)
	}
	return e.ImportKey(priv), nil
}

// ImportKey registers an existing X25519 private key with the enclave.
func (e *Enclave) ImportKey(priv *ecdh.PrivateKey) payload.PublicKey {
	pub := payload.PublicKey(priv.PublicKey().Bytes())

	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys[pub.Base64()] = priv
	if e.defaultKey == nil {
		e.defaultKey = pub
	}
	return pub
}

// ExportKey returns the raw X25519 private scalar for pub, for a host
// process to persist across restarts. It does not exist in any other
// form: the enclave never writes key material to disk itself.
func (e *Enclave) ExportKey(pub payload.PublicKey) ([]byte, error) {
	priv, ok := e.privateKeyFor(pub)
	if !ok {
		return nil, fmt.Errorf("sealed: no such key: %s", pub.Base64())
	}
	return priv.Bytes(), nil
}

// DefaultPublicKey implements enclave.Enclave.
func (e *Enclave) DefaultPublicKey() payload.PublicKey {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultKey
}

// PublicKeys implements enclave.Enclave.
func (e *Enclave) PublicKeys() []payload.PublicKey {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]payload.PublicKey, 0, len(e.keys))
	// The default key, if any, is tried first so that key search behaves
	// deterministically in the common single-key-per-node case.
	if e.defaultKey != nil {
		out = append(out, e.defaultKey)
	}
	for b64, priv := range e.keys {
		pub := payload.PublicKey(priv.PublicKey().Bytes())
		if e.defaultKey != nil && pub.Equal(e.defaultKey) {
			continue
		}
		_ = b64
		out = append(out, pub)
	}
	return out
}

// ForwardingKeys implements enclave.Enclave.
func (e *Enclave) ForwardingKeys() []payload.PublicKey {
	return append([]payload.PublicKey(nil), e.forwarding...)
}

func (e *Enclave) privateKeyFor(pub payload.PublicKey) (*ecdh.PrivateKey, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	priv, ok := e.keys[pub.Base64()]
	return priv, ok
}

// EncryptPayload implements enclave.Enclave.
func (e *Enclave) EncryptPayload(raw []byte, sender payload.PublicKey, recipients []payload.PublicKey, mode payload.PrivacyMode, affected []payload.AffectedTransaction, execHash []byte) (*payload.EncodedPayload, error) {
	contentKey, err := randomBytes(contentKeySize)
	if err != nil {
		return nil, err
	}
	cipherTextNonce, cipherText, err := sealGCM(contentKey, raw)
	if err != nil {
		return nil, fmt.Errorf("sealed: seal content: %w", err)
	}
	return e.buildPayload(sender, cipherText, cipherTextNonce, contentKey, recipients, mode, affected, execHash)
}

// EncryptPayloadFromRaw implements enclave.Enclave.
func (e *Enclave) EncryptPayloadFromRaw(raw *enclave.RawSeal, recipients []payload.PublicKey, mode payload.PrivacyMode, affected []payload.AffectedTransaction, execHash []byte) (*payload.EncodedPayload, error) {
	contentKey, err := e.unwrapRawKey(raw)
	if err != nil {
		return nil, err
	}
	return e.buildPayload(raw.Sender, raw.EncryptedPayload, raw.Nonce, contentKey, recipients, mode, affected, execHash)
}

// EncryptRawPayload implements enclave.Enclave.
func (e *Enclave) EncryptRawPayload(raw []byte, sender payload.PublicKey) (*enclave.RawSeal, error) {
	contentKey, err := randomBytes(contentKeySize)
	if err != nil {
		return nil, err
	}
	nonce, cipherText, err := sealGCM(contentKey, raw)
	if err != nil {
		return nil, fmt.Errorf("sealed: seal raw: %w", err)
	}
	encryptedKey, err := e.wrapRawKey(contentKey)
	if err != nil {
		return nil, err
	}
	return &enclave.RawSeal{
		EncryptedPayload: cipherText,
		EncryptedKey:     encryptedKey,
		Nonce:            nonce,
		Sender:           sender,
	}, nil
}

// UnencryptTransaction implements enclave.Enclave.
func (e *Enclave) UnencryptTransaction(p *payload.EncodedPayload, recipient payload.PublicKey) ([]byte, error) {
	idx := p.RecipientIndex(recipient)
	if idx < 0 {
		if len(p.RecipientBoxes) == 1 {
			idx = 0
		} else {
			return nil, fmt.Errorf("%w: recipient not addressed by payload", enclave.ErrDecryptFailed)
		}
	}

	priv, ok := e.privateKeyFor(recipient)
	if !ok {
		return nil, fmt.Errorf("%w: no local key material for recipient", enclave.ErrDecryptFailed)
	}

	contentKey, err := openRecipientBox(priv, p.SenderKey, p.RecipientNonce, p.RecipientBoxes[idx])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", enclave.ErrDecryptFailed, err)
	}

	plain, err := openGCM(contentKey, p.CipherTextNonce, p.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", enclave.ErrDecryptFailed, err)
	}
	return plain, nil
}

// UnencryptRawPayload implements enclave.Enclave.
func (e *Enclave) UnencryptRawPayload(raw *enclave.RawSeal) ([]byte, error) {
	contentKey, err := e.unwrapRawKey(raw)
	if err != nil {
		return nil, err
	}
	plain, err := openGCM(contentKey, raw.Nonce, raw.EncryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", enclave.ErrDecryptFailed, err)
	}
	return plain, nil
}

// FindInvalidSecurityHashes implements enclave.Enclave.
func (e *Enclave) FindInvalidSecurityHashes(p *payload.EncodedPayload, affected []payload.AffectedTransaction) map[payload.Hash]struct{} {
	invalid := make(map[payload.Hash]struct{})
	for _, a := range affected {
		claimed, ok := p.SecurityHashFor(a.Hash)
		if !ok {
			continue
		}
		want := SecurityHash(a.Payload)
		if !equalBytes(claimed, want) {
			invalid[a.Hash] = struct{}{}
		}
	}
	return invalid
}

// SecurityHash derives the security hash a sender claims for an
// affected transaction: the Keccak-256 digest of the concatenated
// recipient boxes and exec hash of that transaction's payload. This is
// a concrete, testable stand-in for the externally-defined consensus
// computation real deployments use.
func SecurityHash(p *payload.EncodedPayload) []byte {
	h := make([]byte, 0, 64)
	for _, box := range p.RecipientBoxes {
		h = append(h, box...)
	}
	h = append(h, p.ExecHash...)
	return crypto.Keccak256(h)
}

func (e *Enclave) buildPayload(sender payload.PublicKey, cipherText []byte, cipherTextNonce []byte, contentKey []byte, recipients []payload.PublicKey, mode payload.PrivacyMode, affected []payload.AffectedTransaction, execHash []byte) (*payload.EncodedPayload, error) {
	recipientNonce, err := randomBytes(gcmNonceSize)
	if err != nil {
		return nil, err
	}

	boxes := make([][]byte, len(recipients))
	for i, r := range recipients {
		box, err := sealRecipientBox(r, sender, recipientNonce, contentKey)
		if err != nil {
			return nil, fmt.Errorf("sealed: box for %s: %w", r.Base64(), err)
		}
		boxes[i] = box
	}

	entries := make([]payload.AffectedEntry, len(affected))
	for i, a := range affected {
		entries[i] = payload.AffectedEntry{Hash: a.Hash, SecurityHash: SecurityHash(a.Payload)}
	}

	p := &payload.EncodedPayload{
		SenderKey:                    sender,
		CipherText:                   cipherText,
		CipherTextNonce:              cipherTextNonce,
		RecipientBoxes:               boxes,
		RecipientNonce:               recipientNonce,
		RecipientKeys:                append([]payload.PublicKey(nil), recipients...),
		PrivacyMode:                  mode,
		AffectedContractTransactions: entries,
		ExecHash:                     append([]byte(nil), execHash...),
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("sealed: built invalid payload: %w", err)
	}
	return p, nil
}

func (e *Enclave) wrapRawKey(contentKey []byte) ([]byte, error) {
	nonce, ct, err := sealGCM(e.masterKey[:], contentKey)
	if err != nil {
		return nil, fmt.Errorf("sealed: wrap raw key: %w", err)
	}
	return append(nonce, ct...), nil
}

func (e *Enclave) unwrapRawKey(raw *enclave.RawSeal) ([]byte, error) {
	if len(raw.EncryptedKey) < gcmNonceSize {
		return nil, fmt.Errorf("%w: encrypted key too short", enclave.ErrDecryptFailed)
	}
	nonce := raw.EncryptedKey[:gcmNonceSize]
	ct := raw.EncryptedKey[gcmNonceSize:]
	contentKey, err := openGCM(e.masterKey[:], nonce, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", enclave.ErrDecryptFailed, err)
	}
	return contentKey, nil
}

func sealRecipientBox(recipient, sender payload.PublicKey, recipientNonce, contentKey []byte) ([]byte, error) {
	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	recipientKey, err := kem.UnmarshalBinaryPublicKey(recipient)
	if err != nil {
		return nil, fmt.Errorf("unmarshal recipient key: %w", err)
	}

	info := boxInfo(sender, recipientNonce)
	s, err := hpkeSuite.NewSender(recipientKey, info)
	if err != nil {
		return nil, fmt.Errorf("hpke new sender: %w", err)
	}
	enc, sealer, err := s.Setup(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("hpke setup: %w", err)
	}
	ct, err := sealer.Seal(contentKey, info)
	if err != nil {
		return nil, fmt.Errorf("hpke seal: %w", err)
	}
	return append(enc, ct...), nil
}

func openRecipientBox(priv *ecdh.PrivateKey, sender payload.PublicKey, recipientNonce, box []byte) ([]byte, error) {
	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	encSize := kem.EncapsulationSize()
	if len(box) < encSize {
		return nil, fmt.Errorf("box too short")
	}
	enc := box[:encSize]
	ct := box[encSize:]

	skR, err := kem.UnmarshalBinaryPrivateKey(priv.Bytes())
	if err != nil {
		return nil, fmt.Errorf("unmarshal private key: %w", err)
	}

	info := boxInfo(sender, recipientNonce)
	r, err := hpkeSuite.NewReceiver(skR, info)
	if err != nil {
		return nil, fmt.Errorf("hpke new receiver: %w", err)
	}
	opener, err := r.Setup(enc)
	if err != nil {
		return nil, fmt.Errorf("hpke receiver setup: %w", err)
	}
	return opener.Open(ct, info)
}

func boxInfo(sender payload.PublicKey, recipientNonce []byte) []byte {
	info := make([]byte, 0, len(recipientInfo)+len(sender)+len(recipientNonce))
	info = append(info, []byte(recipientInfo)...)
	info = append(info, sender...)
	info = append(info, recipientNonce...)
	return info
}

func sealGCM(key, plaintext []byte) (nonce, cipherText []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce: %w", err)
	}
	return nonce, aead.Seal(nil, nonce, plaintext, nil), nil
}

func openGCM(key, nonce, cipherText []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, cipherText, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("sealed: random bytes: %w", err)
	}
	return b
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MasterKeyFromPassphrase derives a 32-byte master key from an operator
// passphrase. It exists so a node can be brought up deterministically
// in tests and small deployments without a separate KMS.
func MasterKeyFromPassphrase(passphrase string) [32]byte {
	return sha256.Sum256([]byte(passphrase))
}
