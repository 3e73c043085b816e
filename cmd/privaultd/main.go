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

	"github.com/sage-x-project/privault/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "privaultd",
	Short: "privault CLI - private transaction storage and distribution",
	Long: `privaultd drives a privault node's transaction manager directly,
for local smoke-testing and single-node operation: sending and
receiving private transactions, triggering resend catch-up, and
running the metrics/health endpoints for a long-lived node process.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: config/<env>.yaml)")

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Subcommands register themselves in their own init():
	// - send.go: sendCmd, sendSignedCmd
	// - receive.go: receiveCmd
	// - store.go: storeCmd, deleteCmd
	// - resend.go: resendCmd
	// - serve.go: serveCmd
}
