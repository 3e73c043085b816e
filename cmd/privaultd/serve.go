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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/privault/internal/health"
	"github.com/sage-x-project/privault/internal/logger"
	"github.com/sage-x-project/privault/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a long-lived node process with metrics and health endpoints",
	Long: `Builds the node's collaborators from config and keeps the process
alive exposing Prometheus metrics and a health endpoint, for a
deployment that drives the manager through some other transport (this
binary itself offers no network API beyond those two endpoints; see
spec §1's scope note on transport being out of scope).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.close()

	checker := health.NewChecker(0).WithLogger(n.log)
	checker.Register("store", health.StoreCheck(func(ctx context.Context) error {
		_, err := n.store.TransactionCount(ctx)
		return err
	}))

	var servers []*http.Server

	if n.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(n.cfg.Metrics.Path, metrics.Handler())
		srv := &http.Server{Addr: n.cfg.Metrics.Addr, Handler: mux}
		servers = append(servers, srv)
		go func() {
			n.log.Info("privaultd: metrics server listening", logger.String("addr", n.cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				n.log.Error("privaultd: metrics server exited", logger.Error(err))
			}
		}()
	}

	if n.cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.Handle(n.cfg.Health.Path, health.Handler(checker))
		srv := &http.Server{Addr: n.cfg.Health.Addr, Handler: mux}
		servers = append(servers, srv)
		go func() {
			n.log.Info("privaultd: health server listening", logger.String("addr", n.cfg.Health.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				n.log.Error("privaultd: health server exited", logger.Error(err))
			}
		}()
	}

	<-ctx.Done()
	n.log.Info("privaultd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "privaultd: shutdown: %v\n", err)
		}
	}
	return nil
}
