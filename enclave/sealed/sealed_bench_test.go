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

package sealed

import (
	"crypto/rand"
	"testing"

	"github.com/sage-x-project/privault/payload"
)

func BenchmarkGenerateKey(b *testing.B) {
	e := New(MasterKeyFromPassphrase("bench"), nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := e.GenerateKey(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncryptPayload(b *testing.B) {
	sender := New(MasterKeyFromPassphrase("bench-sender"), nil)
	senderPub, err := sender.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}
	recipient := New(MasterKeyFromPassphrase("bench-recipient"), nil)
	recipientPub, err := recipient.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}

	msg := make([]byte, 1024)
	rand.Read(msg)

	b.Run("1 recipient", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := sender.EncryptPayload(msg, senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("10 recipients", func(b *testing.B) {
		recipients := make([]payload.PublicKey, 10)
		for i := range recipients {
			pub, err := recipient.GenerateKey()
			if err != nil {
				b.Fatal(err)
			}
			recipients[i] = pub
		}
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := sender.EncryptPayload(msg, senderPub, recipients, payload.StandardPrivate, nil, nil); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkUnencryptTransaction(b *testing.B) {
	sender := New(MasterKeyFromPassphrase("bench-sender"), nil)
	senderPub, err := sender.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}
	recipient := New(MasterKeyFromPassphrase("bench-recipient"), nil)
	recipientPub, err := recipient.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}

	msg := make([]byte, 1024)
	rand.Read(msg)
	p, err := sender.EncryptPayload(msg, senderPub, []payload.PublicKey{recipientPub}, payload.StandardPrivate, nil, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := recipient.UnencryptTransaction(p, recipientPub); err != nil {
			b.Fatal(err)
		}
	}
}
