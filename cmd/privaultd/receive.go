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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/privault/payload"
)

var (
	receiveTo         string
	receiveRaw        bool
	receiveOutputJSON bool
)

var receiveCmd = &cobra.Command{
	Use:   "receive [hash]",
	Short: "Decrypt a stored transaction and print its plaintext",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVar(&receiveTo, "to", "", "recipient public key, base64 (defaults to key-search across local keys)")
	receiveCmd.Flags().BoolVar(&receiveRaw, "raw", false, "retrieve from the raw (pre-distribution) store instead")
	receiveCmd.Flags().BoolVar(&receiveOutputJSON, "json", false, "emit the full result (privacy flag, affected hashes, exec hash) as JSON")
}

func runReceive(cmd *cobra.Command, args []string) error {
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

	var to *payload.PublicKey
	if receiveTo != "" {
		k, err := payload.PublicKeyFromBase64(receiveTo)
		if err != nil {
			return fmt.Errorf("privaultd: --to: %w", err)
		}
		to = &k
	}

	result, err := n.manager.Receive(ctx, hash, to, receiveRaw)
	if err != nil {
		return fmt.Errorf("privaultd: receive: %w", err)
	}

	if receiveOutputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
			PrivacyFlag byte     `json:"privacy_flag"`
			Affected    []string `json:"affected,omitempty"`
			ExecHash    string   `json:"exec_hash,omitempty"`
			Plaintext   string   `json:"plaintext"`
		}{result.PrivacyFlag, result.AffectedB64, result.ExecHash, string(result.Plaintext)})
	}

	_, err = os.Stdout.Write(result.Plaintext)
	return err
}
