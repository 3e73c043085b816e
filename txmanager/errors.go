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

package txmanager

import "errors"

// ErrTransactionNotFound is TransactionNotFound: a required record is
// absent. User-visible; never retried by the manager.
var ErrTransactionNotFound = errors.New("txmanager: transaction not found")

// ErrRecipientKeyNotFound is RecipientKeyNotFound: no local key
// decrypts the payload.
var ErrRecipientKeyNotFound = errors.New("txmanager: recipient key not found")
