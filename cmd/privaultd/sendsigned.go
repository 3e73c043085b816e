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

	"github.com/spf13/cobra"

	"github.com/sage-x-project/privault/payload"
)

var (
	sendSignedTo       []string
	sendSignedPSV      bool
	sendSignedExecHash string
	sendSignedAffected []string
)

var sendSignedCmd = &cobra.Command{
	Use:   "send-signed [hash]",
	Short: "Distribute a transaction previously stored via store",
	Long: `Takes the hash returned by a prior store call, re-encrypts the raw
transaction it refers to for the given recipients, and publishes the
projection to each remote recipient's peer.`,
	Args: cobra.ExactArgs(1),
	RunE: runSendSigned,
}

func init() {
	rootCmd.AddCommand(sendSignedCmd)

	sendSignedCmd.Flags().StringSliceVar(&sendSignedTo, "to", nil, "recipient public keys, base64, repeatable")
	sendSignedCmd.Flags().BoolVar(&sendSignedPSV, "psv", false, "use Private State Validation instead of standard privacy")
	sendSignedCmd.Flags().StringVar(&sendSignedExecHash, "exec-hash", "", "execution hash, required under --psv")
	sendSignedCmd.Flags().StringSliceVar(&sendSignedAffected, "affected", nil, "affected contract transaction hashes, base64, repeatable")
}

func runSendSigned(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.close()

	hash, err := payload.HashFromBase64(args[0])
	if err != nil {
		return fmt.Errorf("privaultd: hash: %w", err)
	}

	recipients := make([]payload.PublicKey, 0, len(sendSignedTo))
	for _, b64 := range sendSignedTo {
		k, err := payload.PublicKeyFromBase64(b64)
		if err != nil {
			return fmt.Errorf("privaultd: --to %q: %w", b64, err)
		}
		recipients = append(recipients, k)
	}

	mode := payload.StandardPrivate
	if sendSignedPSV {
		mode = payload.PSV
	}

	newHash, err := n.manager.SendSignedTransaction(ctx, hash, recipients, mode, []byte(sendSignedExecHash), sendSignedAffected)
	if err != nil {
		return fmt.Errorf("privaultd: send-signed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), newHash)
	return nil
}
