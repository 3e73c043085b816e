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

var storeInputFile string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Store a raw transaction without distributing it",
	Long: `Reads a raw transaction payload (from --in, or stdin if omitted) and
wraps it under this node's master key for later signing and
distribution via send-signed, without publishing anything yet.`,
	RunE: runStore,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [hash]",
	Short: "Delete a stored transaction by hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(deleteCmd)

	storeCmd.Flags().StringVar(&storeInputFile, "in", "", "path to the raw payload (default: stdin)")
}

func runStore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.close()

	raw, err := readInput(storeInputFile)
	if err != nil {
		return err
	}

	hash, err := n.manager.Store(ctx, raw, nil)
	if err != nil {
		return fmt.Errorf("privaultd: store: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash.Base64())
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := n.manager.Delete(ctx, hash); err != nil {
		return fmt.Errorf("privaultd: delete: %w", err)
	}
	return nil
}
