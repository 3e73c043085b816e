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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/privault/payload"
)

var resendHash string

var resendCmd = &cobra.Command{
	Use:   "resend [public-key]",
	Short: "Catch up a peer on every transaction it is party to",
	Long: `Scans the store and republishes every transaction public-key is
a sender or recipient of. With --hash, instead resends a single
transaction synchronously and prints its encoded bytes rather than
publishing them.`,
	Args: cobra.ExactArgs(1),
	RunE: runResend,
}

func init() {
	rootCmd.AddCommand(resendCmd)

	resendCmd.Flags().StringVar(&resendHash, "hash", "", "resend a single transaction hash instead of the whole store")
}

func runResend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.close()

	publicKey, err := payload.PublicKeyFromBase64(args[0])
	if err != nil {
		return fmt.Errorf("privaultd: public key: %w", err)
	}

	if resendHash != "" {
		hash, err := payload.HashFromBase64(resendHash)
		if err != nil {
			return fmt.Errorf("privaultd: --hash: %w", err)
		}
		encoded, err := n.resend.Individual(ctx, publicKey, hash)
		if err != nil {
			return fmt.Errorf("privaultd: resend individual: %w", err)
		}
		_, err = os.Stdout.Write(encoded)
		return err
	}

	if err := n.resend.All(ctx, publicKey); err != nil {
		return fmt.Errorf("privaultd: resend all: %w", err)
	}
	return nil
}
