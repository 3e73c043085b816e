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

package resend

import "errors"

// ErrTransactionNotFound is TransactionNotFound: Individual was asked
// for a hash the store does not hold.
var ErrTransactionNotFound = errors.New("resend: transaction not found")

// ErrRecipientKeyNotFound is RecipientKeyNotFound: a sender-side
// record was stored without its recipient label, and no local key
// decrypts it during the key-search fallback.
var ErrRecipientKeyNotFound = errors.New("resend: recipient key not found")

// errNoLocalKey is the internal sentinel the key-search helper uses;
// callers observe it only as ErrRecipientKeyNotFound.
var errNoLocalKey = errors.New("resend: no local key decrypts payload")
