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

var (
	sendTo        []string
	sendPSV       bool
	sendExecHash  string
	sendAffected  []string
	sendInputFile string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Encrypt and distribute a new private transaction",
	Long: `Reads a raw transaction payload (from --in, or stdin if omitted),
encrypts it for the given recipients, persists it locally, and
publishes the appropriate projection to each remote recipient's peer.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringSliceVar(&sendTo, "to", nil, "recipient public keys, base64, repeatable")
	sendCmd.Flags().BoolVar(&sendPSV, "psv", false, "use Private State Validation instead of standard privacy")
	sendCmd.Flags().StringVar(&sendExecHash, "exec-hash", "", "execution hash, required under --psv")
	sendCmd.Flags().StringSliceVar(&sendAffected, "affected", nil, "affected contract transaction hashes, base64, repeatable")
	sendCmd.Flags().StringVar(&sendInputFile, "in", "", "path to the raw payload (default: stdin)")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.close()

	raw, err := readInput(sendInputFile)
	if err != nil {
		return err
	}

	recipients := make([]payload.PublicKey, 0, len(sendTo))
	for _, b64 := range sendTo {
		k, err := payload.PublicKeyFromBase64(b64)
		if err != nil {
			return fmt.Errorf("privaultd: --to %q: %w", b64, err)
		}
		recipients = append(recipients, k)
	}

	mode := payload.StandardPrivate
	if sendPSV {
		mode = payload.PSV
	}

	hash, err := n.manager.Send(ctx, raw, nil, recipients, mode, []byte(sendExecHash), sendAffected)
	if err != nil {
		return fmt.Errorf("privaultd: send: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return readAll(os.Stdin)
	}
	return os.ReadFile(path)
}
